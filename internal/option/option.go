// Package option parses the flag-style trailing arguments shared by many
// commands, such as "NX", "EX seconds" or "LIMIT offset count".
//
// A spec is a sequence of bracketed groups:
//
//	[NX|XX] [EX|PX|EXAT|PXAT time] [LIMIT offset count] [WITHSCORES]
//
// Tokens inside one group are mutually exclusive and share the group's
// parameters; each trailing lower-case word consumes one argument.
package option

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mockredis/mockredis/internal/reply"
)

type group struct {
	name   string // tokens joined with "|"
	tokens []string
	params int
}

// Spec is a compiled option grammar. It holds no parse state and may be
// shared between goroutines.
type Spec struct {
	src     string
	groups  []group
	byToken map[string]int // token -> group index
}

// Option is one parsed token and the arguments it consumed.
type Option struct {
	Token string
	Args  []string
}

// Options maps a group name to the token chosen from that group.
type Options struct {
	spec   *Spec
	chosen map[string]Option
}

// Compile parses a spec source string.
func Compile(src string) (*Spec, error) {
	s := &Spec{src: src, byToken: make(map[string]int)}
	rest := strings.TrimSpace(src)
	for rest != "" {
		if rest[0] != '[' {
			return nil, fmt.Errorf("option: expected '[' at %q", rest)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("option: unterminated group in %q", src)
		}
		words := strings.Fields(rest[1:end])
		if len(words) == 0 {
			return nil, fmt.Errorf("option: empty group in %q", src)
		}
		g := group{name: words[0], params: len(words) - 1}
		for _, tok := range strings.Split(words[0], "|") {
			if !isToken(tok) || strings.ToUpper(tok) != tok {
				return nil, fmt.Errorf("option: invalid token %q", tok)
			}
			if _, dup := s.byToken[tok]; dup {
				return nil, fmt.Errorf("option: token %q declared twice", tok)
			}
			s.byToken[tok] = len(s.groups)
			g.tokens = append(g.tokens, tok)
		}
		for _, p := range words[1:] {
			if strings.ToLower(p) != p {
				return nil, fmt.Errorf("option: parameter %q must be lower case", p)
			}
		}
		s.groups = append(s.groups, g)
		rest = strings.TrimSpace(rest[end+1:])
	}
	return s, nil
}

// MustCompile is like Compile but panics on a malformed spec.
func MustCompile(src string) *Spec {
	s, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return s
}

var (
	cacheMu sync.Mutex
	cache   = make(map[string]*Spec)
)

// Cached compiles src once and returns the shared Spec afterwards.
// Used by commands whose grammar depends on an argument, such as WEIGHTS.
func Cached(src string) (*Spec, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if s, ok := cache[src]; ok {
		return s, nil
	}
	s, err := Compile(src)
	if err != nil {
		return nil, err
	}
	cache[src] = s
	return s, nil
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// String returns the source the spec was compiled from.
func (s *Spec) String() string { return s.src }

// Parse consumes the longest prefix of args made of known tokens and their
// parameters. The unconsumed arguments are returned for the caller to
// handle or reject.
func (s *Spec) Parse(args []string) (Options, []string, error) {
	opts := Options{spec: s, chosen: make(map[string]Option)}
	i := 0
	for i < len(args) {
		if !isToken(args[i]) {
			break
		}
		tok := strings.ToUpper(args[i])
		gi, ok := s.byToken[tok]
		if !ok {
			break
		}
		g := s.groups[gi]
		if i+1+g.params > len(args) {
			return Options{}, nil, reply.ErrSyntax
		}
		params := append([]string(nil), args[i+1:i+1+g.params]...)
		if prev, seen := opts.chosen[g.name]; seen {
			if prev.Token != tok || !equal(prev.Args, params) {
				return Options{}, nil, reply.ErrSyntax
			}
		}
		opts.chosen[g.name] = Option{Token: tok, Args: params}
		i += 1 + g.params
	}
	return opts, args[i:], nil
}

// ParseAll is Parse followed by a syntax error if anything is left over.
func (s *Spec) ParseAll(args []string) (Options, error) {
	opts, rest, err := s.Parse(args)
	if err != nil {
		return Options{}, err
	}
	if len(rest) > 0 {
		return Options{}, reply.ErrSyntax
	}
	return opts, nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (o Options) lookup(token string) (Option, bool) {
	if o.spec == nil {
		return Option{}, false
	}
	token = strings.ToUpper(token)
	gi, ok := o.spec.byToken[token]
	if !ok {
		return Option{}, false
	}
	opt, ok := o.chosen[o.spec.groups[gi].name]
	if !ok || opt.Token != token {
		return Option{}, false
	}
	return opt, true
}

// Has reports whether token was given.
func (o Options) Has(token string) bool {
	_, ok := o.lookup(token)
	return ok
}

// Arg returns the single parameter of token.
func (o Options) Arg(token string) (string, bool) {
	opt, ok := o.lookup(token)
	if !ok || len(opt.Args) == 0 {
		return "", false
	}
	return opt.Args[0], true
}

// Args returns all parameters of token.
func (o Options) Args(token string) []string {
	opt, _ := o.lookup(token)
	return opt.Args
}

// Choice returns the token chosen from the group containing token, or "".
func (o Options) Choice(token string) string {
	if o.spec == nil {
		return ""
	}
	gi, ok := o.spec.byToken[strings.ToUpper(token)]
	if !ok {
		return ""
	}
	return o.chosen[o.spec.groups[gi].name].Token
}

// Len returns the number of groups that were given.
func (o Options) Len() int { return len(o.chosen) }
