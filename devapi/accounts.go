package devapi

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/qeem-client/rates"
	"github.com/jrsteele09/qeem-client/users"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

type account struct {
	user         users.User
	passwordHash string
	profile      users.Profile
	history      []rates.HistoryEntry
}

// accountStore keeps users, their profiles and rate history in memory.
// Reads return copies.
type accountStore struct {
	lock          sync.RWMutex
	nextID        int64
	accounts      map[int64]*account
	emailIDs      map[string]int64 // lower-cased email to user id
	verifications map[string]int64 // verification token to user id
	nextRateID    int64
}

func newAccountStore() *accountStore {
	return &accountStore{
		accounts:      make(map[int64]*account),
		emailIDs:      make(map[string]int64),
		verifications: make(map[string]int64),
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create adds an unverified account and returns it with its verification token.
func (as *accountStore) Create(r users.Registration, now time.Time) (users.User, string, error) {
	hash, err := users.HashPassword(r.Password)
	if err != nil {
		return users.User{}, "", err
	}

	as.lock.Lock()
	defer as.lock.Unlock()

	email := normaliseEmail(r.Email)
	if _, ok := as.emailIDs[email]; ok {
		return users.User{}, "", ErrEmailTaken
	}
	as.nextID++
	acc := &account{
		user: users.User{
			ID:        as.nextID,
			Email:     email,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			IsActive:  true,
			CreatedAt: now.UTC(),
		},
		passwordHash: hash,
		profile: users.Profile{
			ID:                as.nextID,
			UserID:            as.nextID,
			FirstName:         r.FirstName,
			LastName:          r.LastName,
			PreferredCurrency: users.CurrencyEGP,
		},
	}
	as.accounts[acc.user.ID] = acc
	as.emailIDs[email] = acc.user.ID

	token := uuid.New().String()
	as.verifications[token] = acc.user.ID
	return acc.user, token, nil
}

// Authenticate checks a password and returns the matching user.
func (as *accountStore) Authenticate(email, password string) (users.User, bool) {
	as.lock.RLock()
	id, ok := as.emailIDs[normaliseEmail(email)]
	var acc account
	if ok {
		acc = *as.accounts[id]
	}
	as.lock.RUnlock()

	if !ok || !users.CheckPasswordHash(password, acc.passwordHash) {
		return users.User{}, false
	}
	return acc.user, true
}

func (as *accountStore) Get(id int64) (users.User, error) {
	as.lock.RLock()
	defer as.lock.RUnlock()
	acc, ok := as.accounts[id]
	if !ok {
		return users.User{}, ErrAccountNotFound
	}
	return acc.user, nil
}

func (as *accountStore) Profile(id int64) (users.Profile, error) {
	as.lock.RLock()
	defer as.lock.RUnlock()
	acc, ok := as.accounts[id]
	if !ok {
		return users.Profile{}, ErrAccountNotFound
	}
	return acc.profile, nil
}

func (as *accountStore) UpdateProfile(id int64, update users.ProfileUpdate) (users.Profile, error) {
	as.lock.Lock()
	defer as.lock.Unlock()
	acc, ok := as.accounts[id]
	if !ok {
		return users.Profile{}, ErrAccountNotFound
	}
	acc.profile = update.Apply(acc.profile)
	acc.user.FirstName = acc.profile.FirstName
	acc.user.LastName = acc.profile.LastName
	return acc.profile, nil
}

// Verify marks the owner of token verified and consumes the token.
func (as *accountStore) Verify(token string) bool {
	as.lock.Lock()
	defer as.lock.Unlock()
	id, ok := as.verifications[token]
	if !ok {
		return false
	}
	delete(as.verifications, token)
	if acc, ok := as.accounts[id]; ok {
		acc.user.IsVerified = true
	}
	return true
}

// NewVerification replaces the verification token of an unverified account.
func (as *accountStore) NewVerification(email string) (string, bool) {
	as.lock.Lock()
	defer as.lock.Unlock()
	id, ok := as.emailIDs[normaliseEmail(email)]
	if !ok || as.accounts[id].user.IsVerified {
		return "", false
	}
	for t, owner := range as.verifications {
		if owner == id {
			delete(as.verifications, t)
		}
	}
	token := uuid.New().String()
	as.verifications[token] = id
	return token, true
}

// VerificationToken returns the pending verification token for email.
func (as *accountStore) VerificationToken(email string) (string, bool) {
	as.lock.RLock()
	defer as.lock.RUnlock()
	id, ok := as.emailIDs[normaliseEmail(email)]
	if !ok {
		return "", false
	}
	for t, owner := range as.verifications {
		if owner == id {
			return t, true
		}
	}
	return "", false
}

// AddCalculation records a calculation, newest first.
func (as *accountStore) AddCalculation(id int64, req rates.Request, resp rates.Response, now time.Time) error {
	as.lock.Lock()
	defer as.lock.Unlock()
	acc, ok := as.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	as.nextRateID++
	entry := rates.HistoryEntry{ID: as.nextRateID, Request: req, Response: resp, CreatedAt: now.UTC()}
	acc.history = append([]rates.HistoryEntry{entry}, acc.history...)
	return nil
}

func (as *accountStore) History(id int64) ([]rates.HistoryEntry, error) {
	as.lock.RLock()
	defer as.lock.RUnlock()
	acc, ok := as.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return append([]rates.HistoryEntry{}, acc.history...), nil
}
