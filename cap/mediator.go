package cap

import (
	stderrors "errors"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/qvmkernel/qvmcore/cry"
	"github.com/qvmkernel/qvmcore/ids"
)

// Verification and mediation failure reasons (spec §4.2).
var (
	ErrBadSignature      = stderrors.New("cap: bad signature")
	ErrExpired           = stderrors.New("cap: token expired")
	ErrRevoked           = stderrors.New("cap: token revoked")
	ErrExhausted         = stderrors.New("cap: token uses exhausted")
	ErrUnknownToken      = stderrors.New("cap: unknown token")
	ErrMissingCapability = stderrors.New("cap: missing capability")
	ErrUnknownOpcode     = stderrors.New("cap: unknown opcode")
)

// record is the mediator's server-side bookkeeping for one issued
// token: the parts that change after issuance (use count, revocation)
// and the parent link revocation walks.
type record struct {
	parentID  string
	maxUses   uint64
	usesSoFar uint64
	revoked   bool
}

// DeniedFunc is invoked, if set, whenever Check rejects an operation;
// it is the hook the execution engine uses to mirror the denial into
// the audit log as an AccessDenied event.
type DeniedFunc func(tenant ids.TenantID, tokenID string, op Opcode, reason error)

// Mediator issues, verifies, attenuates and revokes capability tokens,
// and mediates (verify + capability-coverage + use-count) every
// operation a token is presented for.
type Mediator struct {
	key []byte

	mu      sync.Mutex
	records map[string]*record

	OnAccessDenied DeniedFunc
}

// NewMediator returns a Mediator signing tokens with key, which must be
// exactly cry.MACKeyLength bytes.
func NewMediator(key []byte) *Mediator {
	if len(key) != cry.MACKeyLength {
		panic("cap: MAC key must be 32 bytes")
	}
	return &Mediator{
		key:     append([]byte(nil), key...),
		records: make(map[string]*record),
	}
}

func (m *Mediator) sign(t *Token) []byte {
	return cry.MAC(m.key, canonicalBytes(t))
}

// Issue mints a fresh root token for tenant with the given capabilities,
// time-to-live and use budget.
func (m *Mediator) Issue(tenant ids.TenantID, caps Capability, ttl time.Duration, maxUses uint64) (*Token, error) {
	now := time.Now().UTC()
	tok := &Token{
		ID:        uuid.NewRandom().String(),
		Tenant:    tenant,
		Caps:      caps,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		MaxUses:   maxUses,
	}
	tok.Signature = m.sign(tok)

	m.mu.Lock()
	m.records[tok.ID] = &record{maxUses: maxUses}
	m.mu.Unlock()

	return tok, nil
}

// Verify checks a token's signature, expiry, revocation and use budget
// without consuming a use.
func (m *Mediator) Verify(tok *Token) error {
	if !cry.MACEqual(tok.Signature, m.sign(tok)) {
		return ErrBadSignature
	}
	if time.Now().UTC().After(tok.ExpiresAt) {
		return ErrExpired
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyRecordLocked(tok.ID)
}

// verifyRecordLocked checks revocation and use budget for an already
// signature/expiry-validated token id. Caller must hold m.mu.
func (m *Mediator) verifyRecordLocked(id string) error {
	rec, ok := m.records[id]
	if !ok {
		return ErrUnknownToken
	}
	if m.isRevokedLocked(id) {
		return ErrRevoked
	}
	if rec.usesSoFar >= rec.maxUses {
		return ErrExhausted
	}
	return nil
}

func (m *Mediator) isRevokedLocked(id string) bool {
	for id != "" {
		rec, ok := m.records[id]
		if !ok {
			return false
		}
		if rec.revoked {
			return true
		}
		id = rec.parentID
	}
	return false
}

// Attenuate mints a child token narrower than tok: caps must be a
// subset of tok.Caps, ttl must not exceed tok's remaining lifetime, and
// maxUses must not exceed tok's remaining use budget.
func (m *Mediator) Attenuate(tok *Token, caps Capability, ttl time.Duration, maxUses uint64) (*Token, error) {
	if err := m.Verify(tok); err != nil {
		return nil, err
	}
	if caps&^tok.Caps != 0 {
		return nil, ErrMissingCapability
	}

	now := time.Now().UTC()
	expires := now.Add(ttl)
	if expires.After(tok.ExpiresAt) {
		return nil, stderrors.New("cap: attenuated ttl exceeds parent")
	}

	m.mu.Lock()
	parent := m.records[tok.ID]
	remaining := parent.maxUses - parent.usesSoFar
	m.mu.Unlock()
	if maxUses > remaining {
		return nil, stderrors.New("cap: attenuated max_uses exceeds parent remaining budget")
	}

	child := &Token{
		ID:        uuid.NewRandom().String(),
		Tenant:    tok.Tenant,
		Caps:      caps,
		IssuedAt:  now,
		ExpiresAt: expires,
		MaxUses:   maxUses,
		ParentID:  tok.ID,
	}
	child.Signature = m.sign(child)

	m.mu.Lock()
	m.records[child.ID] = &record{parentID: tok.ID, maxUses: maxUses}
	m.mu.Unlock()

	return child, nil
}

// Revoke marks id (and transitively every descendant minted from it)
// as revoked.
func (m *Mediator) Revoke(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		rec.revoked = true
	}
}

// Check mediates a single operation: it verifies tok, ensures tok's
// capabilities cover what op requires, and atomically increments the
// token's use counter. On any failure it invokes OnAccessDenied (if
// set) and returns MissingCapability or the underlying Verify error.
func (m *Mediator) Check(tok *Token, op Opcode) error {
	required, known := RequiredCaps(op)
	if !known {
		m.deny(tok, op, ErrUnknownOpcode)
		return ErrUnknownOpcode
	}
	if !cry.MACEqual(tok.Signature, m.sign(tok)) {
		m.deny(tok, op, ErrBadSignature)
		return ErrBadSignature
	}
	if time.Now().UTC().After(tok.ExpiresAt) {
		m.deny(tok, op, ErrExpired)
		return ErrExpired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.verifyRecordLocked(tok.ID); err != nil {
		m.deny(tok, op, err)
		return err
	}
	if !tok.Caps.Covers(required) {
		m.deny(tok, op, ErrMissingCapability)
		return ErrMissingCapability
	}

	m.records[tok.ID].usesSoFar++
	return nil
}

func (m *Mediator) deny(tok *Token, op Opcode, reason error) {
	if m.OnAccessDenied != nil {
		m.OnAccessDenied(tok.Tenant, tok.ID, op, reason)
	}
}
