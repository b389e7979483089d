package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/umagate/umagate/internal/clock"
	"github.com/umagate/umagate/internal/keycipher"
	"github.com/umagate/umagate/internal/tenant/domain"
	"go.uber.org/zap"
)

// snapshot is an immutable view of the active tenant set. Readers load it
// atomically and never observe partial state; writers build a replacement
// and swap it in.
type snapshot struct {
	byID     map[string]*domain.Record
	byDomain map[string]*domain.Record
}

func emptySnapshot() *snapshot {
	return &snapshot{
		byID:     map[string]*domain.Record{},
		byDomain: map[string]*domain.Record{},
	}
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		byID:     make(map[string]*domain.Record, len(s.byID)+1),
		byDomain: make(map[string]*domain.Record, len(s.byDomain)+1),
	}
	for k, v := range s.byID {
		next.byID[k] = v
	}
	for k, v := range s.byDomain {
		next.byDomain[k] = v
	}
	return next
}

type directory struct {
	log    *zap.Logger
	repo   domain.Repository
	cipher keycipher.Cipher
	clk    clock.Clock

	// mu serializes writers; readers go straight to the snapshot.
	mu    sync.Mutex
	cache atomic.Pointer[snapshot]
}

// NewDirectory builds the tenant directory. Initialize must run before the
// directory serves traffic.
func NewDirectory(log *zap.Logger, repo domain.Repository, cipher keycipher.Cipher, clk clock.Clock) domain.Directory {
	d := &directory{
		log:    log,
		repo:   repo,
		cipher: cipher,
		clk:    clk,
	}
	d.cache.Store(emptySnapshot())
	return d
}

func (d *directory) Initialize(ctx context.Context) error {
	if err := d.repo.EnsureSchema(ctx); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

func (d *directory) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tenants, err := d.repo.ListActive(ctx)
	if err != nil {
		return err
	}

	next := emptySnapshot()
	for _, t := range tenants {
		record, err := d.loadRecord(ctx, t)
		if err != nil {
			d.log.Warn("skipping tenant: key material failed to load",
				zap.String("tenant_id", t.ID),
				zap.Error(err),
			)
			continue
		}
		if record == nil {
			d.log.Warn("skipping tenant: no key material",
				zap.String("tenant_id", t.ID),
			)
			continue
		}
		next.byID[record.ID] = record
		next.byDomain[record.Domain] = record
	}

	d.cache.Store(next)
	return nil
}

func (d *directory) Add(ctx context.Context, req domain.CreateTenantRequest) (*domain.Record, error) {
	switch {
	case req.ID == "":
		return nil, domain.ErrMissingID
	case req.Name == "":
		return nil, domain.ErrMissingName
	case req.Domain == "":
		return nil, domain.ErrMissingDomain
	case req.SigningKey.IsZero() || req.EncryptionKey.IsZero():
		return nil, domain.ErrMissingKeys
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Existence is checked against storage, not the cache, so concurrent
	// directory instances cannot both pass.
	exists, err := d.repo.Exists(ctx, req.ID, req.Domain)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrConflict
	}

	now := d.clk.Now()
	t := domain.Tenant{
		ID:               req.ID,
		Name:             req.Name,
		Domain:           req.Domain,
		BaseURL:          req.BaseURL,
		SigningPubKey:    req.SigningKey.PublicKeyHex,
		EncryptionPubKey: req.EncryptionKey.PublicKeyHex,
		Tables:           req.Tables,
		Currencies:       req.Currencies,
		PayerData:        req.PayerData,
		MinSendableSats:  req.MinSendableSats,
		MaxSendableSats:  req.MaxSendableSats,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	for k, v := range req.Metadata {
		if t.Metadata == nil {
			t.Metadata = map[string]interface{}{}
		}
		t.Metadata[k] = v
	}
	t.ApplyDefaults()

	if err := d.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	sealedSigning, err := d.cipher.Encrypt(req.SigningKey.PrivateKey)
	if err != nil {
		return nil, err
	}
	sealedEncryption, err := d.cipher.Encrypt(req.EncryptionKey.PrivateKey)
	if err != nil {
		return nil, err
	}
	if err := d.repo.UpsertKeys(ctx, domain.TenantKeys{
		TenantID:          t.ID,
		SigningPrivKey:    sealedSigning,
		EncryptionPrivKey: sealedEncryption,
		CreatedAt:         now,
		UpdatedAt:         now,
	}); err != nil {
		return nil, err
	}

	if err := d.repo.EnsurePartitions(ctx, t); err != nil {
		return nil, err
	}

	record := &domain.Record{
		Tenant: t,
		Keys: domain.Keys{
			SigningPubKey:     t.SigningPubKey,
			SigningPrivKey:    req.SigningKey.PrivateKey,
			EncryptionPubKey:  t.EncryptionPubKey,
			EncryptionPrivKey: req.EncryptionKey.PrivateKey,
		},
	}

	if t.Active {
		next := d.cache.Load().clone()
		next.byID[record.ID] = record
		next.byDomain[record.Domain] = record
		d.cache.Store(next)
	}

	return record, nil
}

func (d *directory) Get(ctx context.Context, id string) (*domain.Record, error) {
	if record, ok := d.cache.Load().byID[id]; ok {
		return record, nil
	}

	t, err := d.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	return d.loadAndCache(ctx, *t)
}

func (d *directory) GetByDomain(ctx context.Context, dom string) (*domain.Record, error) {
	if record, ok := d.cache.Load().byDomain[dom]; ok {
		return record, nil
	}

	t, err := d.repo.GetByDomain(ctx, dom)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	return d.loadAndCache(ctx, *t)
}

func (d *directory) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Always patch the authoritative record, not the cached snapshot.
	t, err := d.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}

	previousDomain := t.Domain
	applyPatch(t, patch)
	t.UpdatedAt = d.clk.Now()

	if err := d.repo.Update(ctx, *t); err != nil {
		return nil, err
	}

	record, err := d.loadRecord(ctx, *t)
	if err != nil {
		return nil, err
	}

	next := d.cache.Load().clone()
	// Remove the stale domain entry before any insert so a changed domain
	// never points at a removed tenant.
	delete(next.byDomain, previousDomain)
	delete(next.byID, t.ID)
	if t.Active && record != nil {
		next.byID[record.ID] = record
		next.byDomain[record.Domain] = record
	}
	d.cache.Store(next)

	if record == nil {
		record = &domain.Record{Tenant: *t}
	}
	return record, nil
}

func (d *directory) Remove(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	existed, err := d.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if err := d.repo.DeleteKeys(ctx, id); err != nil {
		return false, err
	}

	next := d.cache.Load().clone()
	if record, ok := next.byID[id]; ok {
		delete(next.byDomain, record.Domain)
		delete(next.byID, id)
		d.cache.Store(next)
	}

	return existed, nil
}

func (d *directory) ListActive() []*domain.Record {
	snap := d.cache.Load()
	records := make([]*domain.Record, 0, len(snap.byID))
	for _, record := range snap.byID {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// loadRecord attaches decrypted keys to a tenant. A missing key row yields
// nil, nil: the tenant is not eligible for caching or active use.
func (d *directory) loadRecord(ctx context.Context, t domain.Tenant) (*domain.Record, error) {
	keys, err := d.repo.GetKeys(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, nil
	}

	signing, err := d.cipher.Decrypt(keys.SigningPrivKey)
	if err != nil {
		return nil, err
	}
	encryption, err := d.cipher.Decrypt(keys.EncryptionPrivKey)
	if err != nil {
		return nil, err
	}

	return &domain.Record{
		Tenant: t,
		Keys: domain.Keys{
			SigningPubKey:     t.SigningPubKey,
			SigningPrivKey:    signing,
			EncryptionPubKey:  t.EncryptionPubKey,
			EncryptionPrivKey: encryption,
		},
	}, nil
}

func (d *directory) loadAndCache(ctx context.Context, t domain.Tenant) (*domain.Record, error) {
	record, err := d.loadRecord(ctx, t)
	if err != nil {
		d.log.Warn("tenant key material failed to load",
			zap.String("tenant_id", t.ID),
			zap.Error(err),
		)
		return nil, nil
	}
	if record == nil {
		return nil, nil
	}
	if !t.Active {
		// Inactive tenants stay out of the cache and out of protocol view.
		return nil, nil
	}

	d.mu.Lock()
	next := d.cache.Load().clone()
	next.byID[record.ID] = record
	next.byDomain[record.Domain] = record
	d.cache.Store(next)
	d.mu.Unlock()

	return record, nil
}

func applyPatch(t *domain.Tenant, patch domain.Patch) {
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Domain != nil {
		t.Domain = *patch.Domain
	}
	if patch.BaseURL != nil {
		t.BaseURL = *patch.BaseURL
	}
	if patch.Currencies != nil {
		t.Currencies = *patch.Currencies
	}
	if patch.PayerData != nil {
		t.PayerData = *patch.PayerData
	}
	if patch.MinSendableSats != nil {
		t.MinSendableSats = *patch.MinSendableSats
	}
	if patch.MaxSendableSats != nil {
		t.MaxSendableSats = *patch.MaxSendableSats
	}
	if patch.Active != nil {
		t.Active = *patch.Active
	}
	if patch.Tables != nil {
		// Deep merge: only supplied names override.
		if patch.Tables.Users != "" {
			t.Tables.Users = patch.Tables.Users
		}
		if patch.Tables.Payments != "" {
			t.Tables.Payments = patch.Tables.Payments
		}
		if patch.Tables.Utxos != "" {
			t.Tables.Utxos = patch.Tables.Utxos
		}
	}
	if len(patch.Metadata) > 0 {
		if t.Metadata == nil {
			t.Metadata = map[string]interface{}{}
		}
		for k, v := range patch.Metadata {
			t.Metadata[k] = v
		}
	}
}
