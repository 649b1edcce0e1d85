package profile

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"

	"github.com/use-agent/threadscope/models"
)

// Registry holds the loaded profiles. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	order    []string
}

// NewRegistry returns a registry seeded with the given profiles.
func NewRegistry(profiles ...*Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]*Profile)}
	for _, p := range profiles {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default returns a registry holding the built-in profiles.
func Default() *Registry {
	r, err := NewRegistry(Builtins()...)
	if err != nil {
		panic(fmt.Sprintf("profile: invalid builtin profile: %v", err))
	}
	return r
}

// Add validates p and stores it, replacing any profile with the same name.
func (r *Registry) Add(p *Profile) error {
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.profiles[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.profiles[p.Name] = p
	return nil
}

// Get returns the profile registered under name.
func (r *Registry) Get(name string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

// Match returns the profile whose host suffix matches rawURL most specifically.
func (r *Registry) Match(rawURL string) (*Profile, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, false
	}
	host := strings.ToLower(u.Hostname())

	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best    *Profile
		bestLen int
	)
	for _, name := range r.order {
		p := r.profiles[name]
		for _, h := range p.Hosts {
			h = strings.ToLower(h)
			if (host == h || strings.HasSuffix(host, "."+h)) && len(h) > bestLen {
				best, bestLen = p, len(h)
			}
		}
	}
	return best, best != nil
}

// Resolve picks the named profile, or matches rawURL when name is empty.
func (r *Registry) Resolve(name, rawURL string) (*Profile, error) {
	if name != "" {
		if p, ok := r.Get(name); ok {
			return p, nil
		}
		return nil, models.NewCrawlError(models.ErrCodeUnknownProfile,
			fmt.Sprintf("no profile named %q", name), nil)
	}
	if p, ok := r.Match(rawURL); ok {
		return p, nil
	}
	return nil, models.NewCrawlError(models.ErrCodeUnknownProfile,
		"no profile matches the URL host; pass a profile name", nil)
}

// List returns the profiles in registration order.
func (r *Registry) List() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.profiles[name])
	}
	return out
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (p *Profile) applyDefaults() {
	rv := &p.Reveal
	if rv.Mode == "" {
		rv.Mode = ScrollStep
	}
	if rv.MaxRounds <= 0 {
		rv.MaxRounds = 20
	}
	if rv.StableRounds <= 0 {
		rv.StableRounds = 3
	}
	if rv.MinStep <= 0 {
		rv.MinStep = 600
	}
	if rv.StepRatio <= 0 {
		rv.StepRatio = 0.8
	}
	if rv.ExpandLimit <= 0 {
		rv.ExpandLimit = 30
	}
	if rv.FinalPerRound <= 0 {
		rv.FinalPerRound = 40
	}
	if p.Pagination.Style == "" {
		p.Pagination.Style = PaginateNone
	}
	if p.Pagination.MaxPages <= 0 {
		p.Pagination.MaxPages = 10
	}
	if p.Threads.KeyPrefix <= 0 {
		p.Threads.KeyPrefix = 140
	}
	if p.Threads.Reply.KeyPrefix <= 0 {
		p.Threads.Reply.KeyPrefix = 180
	}
}

// Validate checks that the profile is usable: required fields, selector
// syntax and patterns.
func (p *Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if p.Threads.Root == "" || p.Threads.Left == "" || p.Threads.Right == "" {
		errs = append(errs, errors.New("threads.root, threads.left and threads.right are required"))
	}
	for _, sel := range p.Selectors() {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			errs = append(errs, fmt.Errorf("selector %q: %w", sel, err))
		}
	}
	if p.Post.DatePattern != "" {
		if _, err := regexp.Compile(p.Post.DatePattern); err != nil {
			errs = append(errs, fmt.Errorf("post.datePattern: %w", err))
		}
	}
	switch p.Pagination.Style {
	case PaginateNone:
	case PaginateNext:
		if p.Pagination.Next == "" {
			errs = append(errs, errors.New("pagination.next is required for the next style"))
		}
	case PaginateIncrement:
		re, err := regexp.Compile(p.Pagination.PagePattern)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("pagination.pagePattern: %w", err))
		case re.NumSubexp() < 1:
			errs = append(errs, errors.New("pagination.pagePattern needs a capture group around the page number"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown pagination style %q", p.Pagination.Style))
	}
	for i, a := range p.Setup {
		if err := a.validate(); err != nil {
			errs = append(errs, fmt.Errorf("setup[%d]: %w", i, err))
		}
	}
	if m := p.Reveal.Mode; m != ScrollStep && m != ScrollBottom {
		errs = append(errs, fmt.Errorf("unknown reveal mode %q", m))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("profile %q: %w", p.Name, errors.Join(errs...))
}

func (a Action) validate() error {
	switch a.Type {
	case ActionWait:
		if a.Selector == "" && a.Duration <= 0 {
			return errors.New("wait needs a selector or a duration")
		}
	case ActionClick:
		if a.Selector == "" {
			return errors.New("click needs a selector")
		}
	case ActionScroll:
	case ActionEval:
		if a.Code == "" {
			return errors.New("eval needs code")
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}
