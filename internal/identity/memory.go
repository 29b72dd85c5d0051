package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

const (
	passwordSignIn = "password"
	googleSignIn   = googleSignInProvider
)

type memoryAccount struct {
	principal models.Principal
	password  string
	disabled  bool
}

type memoryToken struct {
	uid      string
	provider string
}

type memoryWatcher struct {
	credential string
	events     chan *models.Principal
	done       chan struct{}
}

// MemoryProvider is an in-process identity provider for local development and tests.
// Credentials are opaque tokens minted by IssueToken or GoogleToken.
type MemoryProvider struct {
	mu         sync.Mutex
	accounts   map[string]*memoryAccount
	byEmail    map[string]string
	tokens     map[string]memoryToken
	watchers   map[*memoryWatcher]struct{}
	signOutErr error
	signOuts   int
}

// NewMemoryProvider returns an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts: make(map[string]*memoryAccount),
		byEmail:  make(map[string]string),
		tokens:   make(map[string]memoryToken),
		watchers: make(map[*memoryWatcher]struct{}),
	}
}

// AddUser registers an account. An empty password makes it federated-only.
func (p *MemoryProvider) AddUser(principal models.Principal, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addLocked(principal, password)
}

func (p *MemoryProvider) addLocked(principal models.Principal, password string) {
	p.accounts[principal.UID] = &memoryAccount{principal: principal, password: password}
	if principal.Email != "" {
		p.byEmail[strings.ToLower(principal.Email)] = principal.UID
	}
}

// IssueToken mints a password-session credential for uid.
func (p *MemoryProvider) IssueToken(uid string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issueLocked(uid, passwordSignIn)
}

// GoogleToken mints a Google-backed credential, creating the account on first use.
func (p *MemoryProvider) GoogleToken(principal models.Principal) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[principal.UID]; !ok {
		p.addLocked(principal, "")
	}
	return p.issueLocked(principal.UID, googleSignIn)
}

func (p *MemoryProvider) issueLocked(uid, provider string) string {
	token := "tok_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	p.tokens[token] = memoryToken{uid: uid, provider: provider}
	return token
}

// Disable marks the account as disabled and revokes its credentials.
func (p *MemoryProvider) Disable(uid string) {
	p.mu.Lock()
	if a, ok := p.accounts[uid]; ok {
		a.disabled = true
	}
	p.mu.Unlock()
	p.Revoke(uid)
}

// Revoke invalidates every credential of uid and reports the loss to observers.
func (p *MemoryProvider) Revoke(uid string) {
	p.mu.Lock()
	var affected []*memoryWatcher
	for token, t := range p.tokens {
		if t.uid != uid {
			continue
		}
		delete(p.tokens, token)
		for w := range p.watchers {
			if w.credential == token {
				affected = append(affected, w)
			}
		}
	}
	p.mu.Unlock()
	for _, w := range affected {
		w.deliver(nil)
	}
}

// FailSignOut makes every later SignOut call return err. Nil restores success.
func (p *MemoryProvider) FailSignOut(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOutErr = err
}

// SignOutCalls returns how many times SignOut was invoked.
func (p *MemoryProvider) SignOutCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOuts
}

// Principal returns the stored principal for uid.
func (p *MemoryProvider) Principal(uid string) (models.Principal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.accounts[uid]
	if !ok {
		return models.Principal{}, false
	}
	return a.principal, true
}

func (p *MemoryProvider) ObserveAuthState(ctx context.Context, credential string, fn AuthStateFunc) func() {
	w := &memoryWatcher{
		credential: credential,
		events:     make(chan *models.Principal, 16),
		done:       make(chan struct{}),
	}

	p.mu.Lock()
	initial, _ := p.principalForLocked(credential, "")
	p.watchers[w] = struct{}{}
	p.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case principal := <-w.events:
				fn(principal)
			}
		}
	}()
	w.deliver(initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.watchers, w)
			p.mu.Unlock()
			close(w.done)
		})
	}
}

func (w *memoryWatcher) deliver(principal *models.Principal) {
	select {
	case w.events <- principal:
	case <-w.done:
	}
}

func (p *MemoryProvider) principalForLocked(credential, requireProvider string) (*models.Principal, error) {
	t, ok := p.tokens[credential]
	if !ok {
		return nil, NewAuthError(CodeInvalidCredential, nil)
	}
	if requireProvider != "" && t.provider != requireProvider {
		return nil, NewAuthError(CodeFederatedRequired, nil)
	}
	a, ok := p.accounts[t.uid]
	if !ok {
		return nil, NewAuthError(CodeUserNotFound, nil)
	}
	if a.disabled {
		return nil, NewAuthError(CodeUserDisabled, nil)
	}
	principal := a.principal
	return &principal, nil
}

func (p *MemoryProvider) VerifyCredential(_ context.Context, credential string) (*models.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.principalForLocked(credential, "")
}

func (p *MemoryProvider) SignInFederated(_ context.Context, credential string) (*models.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.principalForLocked(credential, googleSignIn)
}

func (p *MemoryProvider) SignInWithPassword(_ context.Context, email, password string) (*models.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	uid, ok := p.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, NewAuthError(CodeUserNotFound, nil)
	}
	a := p.accounts[uid]
	if a.disabled {
		return nil, NewAuthError(CodeUserDisabled, nil)
	}
	if a.password == "" || a.password != password {
		return nil, NewAuthError(CodeWrongPassword, nil)
	}
	principal := a.principal
	return &principal, nil
}

func (p *MemoryProvider) SignUpWithPassword(_ context.Context, email, password string) (*models.Principal, error) {
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return nil, NewAuthError(CodeInvalidEmail, nil)
	}
	if len(password) < MinPasswordLength {
		return nil, NewAuthError(CodeWeakPassword, nil)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byEmail[strings.ToLower(email)]; exists {
		return nil, NewAuthError(CodeEmailAlreadyInUse, nil)
	}
	principal := models.Principal{
		UID:   strings.ReplaceAll(uuid.NewString(), "-", "")[:28],
		Email: email,
	}
	p.addLocked(principal, password)
	return &principal, nil
}

func (p *MemoryProvider) UpdatePrincipalProfile(_ context.Context, uid string, update models.PrincipalUpdate) (*models.Principal, error) {
	p.mu.Lock()
	a, ok := p.accounts[uid]
	if !ok {
		p.mu.Unlock()
		return nil, NewAuthError(CodeUserNotFound, nil)
	}
	if update.DisplayName != nil {
		a.principal.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		a.principal.PhotoURL = *update.PhotoURL
	}
	principal := a.principal
	var affected []*memoryWatcher
	for w := range p.watchers {
		if t, ok := p.tokens[w.credential]; ok && t.uid == uid {
			affected = append(affected, w)
		}
	}
	p.mu.Unlock()

	for _, w := range affected {
		updated := principal
		w.deliver(&updated)
	}
	return &principal, nil
}

// SignOut revokes the account's credentials unless a failure was injected.
func (p *MemoryProvider) SignOut(_ context.Context, uid string) error {
	p.mu.Lock()
	p.signOuts++
	err := p.signOutErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.Revoke(uid)
	return nil
}
