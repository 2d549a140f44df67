package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Authorization is the microphone permission state.
type Authorization int

const (
	AuthNotDetermined Authorization = iota
	AuthAuthorized
	AuthDenied
	AuthRestricted
)

func (a Authorization) String() string {
	switch a {
	case AuthAuthorized:
		return "authorized"
	case AuthDenied:
		return "denied"
	case AuthRestricted:
		return "restricted"
	default:
		return "not_determined"
	}
}

// ParseAuthorization accepts the names produced by String.
func ParseAuthorization(s string) (Authorization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "authorized", "granted":
		return AuthAuthorized, nil
	case "denied":
		return AuthDenied, nil
	case "restricted":
		return AuthRestricted, nil
	case "not_determined", "prompt", "":
		return AuthNotDetermined, nil
	}
	return AuthNotDetermined, fmt.Errorf("unknown authorization %q", s)
}

// Authorizer answers and requests microphone access.
type Authorizer interface {
	Status(ctx context.Context) Authorization
	// Request asks the user once; it is only called in AuthNotDetermined.
	Request(ctx context.Context) (bool, error)
}

// StaticAuthorizer has a fixed state. Request resolves NotDetermined to
// Grant and counts how many times it was asked.
type StaticAuthorizer struct {
	mu       sync.Mutex
	state    Authorization
	grant    bool
	requests int
}

// NewStaticAuthorizer creates an authorizer in state; Request answers grant.
func NewStaticAuthorizer(state Authorization, grant bool) *StaticAuthorizer {
	return &StaticAuthorizer{state: state, grant: grant}
}

func (s *StaticAuthorizer) Status(context.Context) Authorization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *StaticAuthorizer) Request(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if s.grant {
		s.state = AuthAuthorized
	} else {
		s.state = AuthDenied
	}
	return s.grant, nil
}

// Requests returns how many times Request was called.
func (s *StaticAuthorizer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// FileAuthorizer persists the user's one-time answer in a state file and
// prompts on a terminal when no answer exists yet.
type FileAuthorizer struct {
	Path string
	In   io.Reader
	Out  io.Writer

	mu sync.Mutex
}

// NewFileAuthorizer prompts on stdin/stdout.
func NewFileAuthorizer(path string) *FileAuthorizer {
	return &FileAuthorizer{Path: path, In: os.Stdin, Out: os.Stdout}
}

func (f *FileAuthorizer) Status(context.Context) Authorization {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return AuthNotDetermined
	}
	state, err := ParseAuthorization(string(data))
	if err != nil {
		return AuthRestricted
	}
	return state
}

func (f *FileAuthorizer) Request(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.In == nil || f.Out == nil {
		return false, errors.New("no terminal available to ask for microphone access")
	}

	fmt.Fprint(f.Out, "Allow microphone access for meeting recording? [y/N]: ")
	line, err := bufio.NewReader(f.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	granted := answer == "y" || answer == "yes"

	state := AuthDenied
	if granted {
		state = AuthAuthorized
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return granted, fmt.Errorf("persist answer: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(state.String()+"\n"), 0o600); err != nil {
		return granted, fmt.Errorf("persist answer: %w", err)
	}
	return granted, nil
}
