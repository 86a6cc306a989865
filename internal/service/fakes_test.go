package service

import (
	"context"
	"sort"
	"time"

	"stockroom/internal/model"
	"stockroom/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes backing the service tests. They mirror the
// Postgres repositories closely enough to exercise the workflow rules:
// ErrRecordNotFound on misses, value-copy semantics on reads, and the same
// filter behavior as the SQL queries.

type passthroughTxManager struct{}

func (passthroughTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- stock items ---

type fakeStockItemRepo struct {
	items       map[uuid.UUID]model.StockItem
	quantityErr error
}

func newFakeStockItemRepo() *fakeStockItemRepo {
	return &fakeStockItemRepo{items: make(map[uuid.UUID]model.StockItem)}
}

func (r *fakeStockItemRepo) add(item model.StockItem) model.StockItem {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.items[item.ID] = item
	return item
}

func (r *fakeStockItemRepo) Create(ctx context.Context, item *model.StockItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.items[item.ID] = *item
	return nil
}

func (r *fakeStockItemRepo) Update(ctx context.Context, item *model.StockItem) error {
	if _, ok := r.items[item.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.items[item.ID] = *item
	return nil
}

func (r *fakeStockItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *fakeStockItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := item
	return &copied, nil
}

func (r *fakeStockItemRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeStockItemRepo) List(ctx context.Context, page, limit int, search, category string) ([]model.StockItem, int64, error) {
	var items []model.StockItem
	for _, item := range r.items {
		if category != "" && item.Category != category {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, int64(len(items)), nil
}

func (r *fakeStockItemRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	if r.quantityErr != nil {
		return r.quantityErr
	}
	item, ok := r.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Quantity = quantity
	r.items[id] = item
	return nil
}

func (r *fakeStockItemRepo) quantity(id uuid.UUID) int {
	return r.items[id].Quantity
}

// --- requests ---

type fakeRequestRepo struct {
	requests map[uuid.UUID]model.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]model.Request)}
}

func (r *fakeRequestRepo) add(req model.Request) model.Request {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.requests[req.ID] = req
	return req
}

func (r *fakeRequestRepo) Create(ctx context.Context, req *model.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	for i := range req.Lines {
		if req.Lines[i].ID == uuid.Nil {
			req.Lines[i].ID = uuid.New()
		}
		req.Lines[i].RequestID = req.ID
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *fakeRequestRepo) Update(ctx context.Context, req *model.Request) error {
	stored, ok := r.requests[req.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	lines := stored.Lines // Update omits lines, like the SQL repo
	stored = *req
	stored.Lines = lines
	r.requests[req.ID] = stored
	return nil
}

func (r *fakeRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := req
	return &copied, nil
}

func (r *fakeRequestRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeRequestRepo) List(ctx context.Context, page, limit int, status string, requesterID *uuid.UUID) ([]model.Request, int64, error) {
	var requests []model.Request
	for _, req := range r.requests {
		if status != "" && req.Status != status {
			continue
		}
		if requesterID != nil && req.RequesterID != *requesterID {
			continue
		}
		requests = append(requests, req)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, int64(len(requests)), nil
}

func (r *fakeRequestRepo) ReplaceLines(ctx context.Context, requestID uuid.UUID, lines []model.RequestLine) error {
	req, ok := r.requests[requestID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		lines[i].RequestID = requestID
	}
	req.Lines = lines
	r.requests[requestID] = req
	return nil
}

// --- issued items ---

type fakeIssuedItemRepo struct {
	records map[uuid.UUID]model.IssuedItem
}

func newFakeIssuedItemRepo() *fakeIssuedItemRepo {
	return &fakeIssuedItemRepo{records: make(map[uuid.UUID]model.IssuedItem)}
}

func (r *fakeIssuedItemRepo) add(record model.IssuedItem) model.IssuedItem {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.records[record.ID] = record
	return record
}

func (r *fakeIssuedItemRepo) Create(ctx context.Context, item *model.IssuedItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.records[item.ID] = *item
	return nil
}

func (r *fakeIssuedItemRepo) Update(ctx context.Context, item *model.IssuedItem) error {
	if _, ok := r.records[item.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.records[item.ID] = *item
	return nil
}

func (r *fakeIssuedItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.IssuedItem, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := record
	return &copied, nil
}

func (r *fakeIssuedItemRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.IssuedItem, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeIssuedItemRepo) List(ctx context.Context, page, limit int, filter repository.IssuedItemFilter) ([]model.IssuedItem, int64, error) {
	var records []model.IssuedItem
	for _, record := range r.records {
		if filter.HolderID != nil && record.HolderID != *filter.HolderID {
			continue
		}
		if filter.RequestID != nil && (record.RequestID == nil || *record.RequestID != *filter.RequestID) {
			continue
		}
		if filter.Returned != nil && record.Returned != *filter.Returned {
			continue
		}
		if filter.OverdueAt != nil && (record.Returned || !record.ReturnDue.Before(*filter.OverdueAt)) {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].IssuedAt.After(records[j].IssuedAt)
	})
	return records, int64(len(records)), nil
}

func (r *fakeIssuedItemRepo) ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	for _, record := range r.records {
		if record.RequestID != nil && *record.RequestID == requestID {
			return true, nil
		}
	}
	return false, nil
}

// --- transfers ---

type fakeTransferRepo struct {
	transfers []model.Transfer
}

func (r *fakeTransferRepo) Create(ctx context.Context, transfer *model.Transfer) error {
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	transfer.CreatedAt = time.Now()
	r.transfers = append(r.transfers, *transfer)
	return nil
}

func (r *fakeTransferRepo) List(ctx context.Context, page, limit int, issuedItemID *uuid.UUID) ([]model.Transfer, int64, error) {
	var transfers []model.Transfer
	for _, t := range r.transfers {
		if issuedItemID != nil && t.IssuedItemID != *issuedItemID {
			continue
		}
		transfers = append(transfers, t)
	}
	return transfers, int64(len(transfers)), nil
}

// --- purchases ---

type fakePurchaseRepo struct {
	purchases []model.PurchaseHistory
	createErr error
}

func (r *fakePurchaseRepo) Create(ctx context.Context, purchase *model.PurchaseHistory) error {
	if r.createErr != nil {
		return r.createErr
	}
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	r.purchases = append(r.purchases, *purchase)
	return nil
}

func (r *fakePurchaseRepo) List(ctx context.Context, page, limit int, itemID *uuid.UUID) ([]model.PurchaseHistory, int64, error) {
	var purchases []model.PurchaseHistory
	for _, p := range r.purchases {
		if itemID != nil && p.ItemID != *itemID {
			continue
		}
		purchases = append(purchases, p)
	}
	return purchases, int64(len(purchases)), nil
}

// --- discards ---

type fakeDiscardRepo struct {
	discards []model.DiscardedItem
}

func (r *fakeDiscardRepo) Create(ctx context.Context, discard *model.DiscardedItem) error {
	if discard.ID == uuid.Nil {
		discard.ID = uuid.New()
	}
	r.discards = append(r.discards, *discard)
	return nil
}

func (r *fakeDiscardRepo) List(ctx context.Context, page, limit int, itemID *uuid.UUID, reason string) ([]model.DiscardedItem, int64, error) {
	var discards []model.DiscardedItem
	for _, d := range r.discards {
		if itemID != nil && d.ItemID != *itemID {
			continue
		}
		if reason != "" && d.Reason != reason {
			continue
		}
		discards = append(discards, d)
	}
	return discards, int64(len(discards)), nil
}

// --- assets ---

type fakeAssetRepo struct {
	assets         map[uuid.UUID]model.Asset
	forUpdateCalls int
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{assets: make(map[uuid.UUID]model.Asset)}
}

func (r *fakeAssetRepo) add(asset model.Asset) model.Asset {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	r.assets[asset.ID] = asset
	return asset
}

func (r *fakeAssetRepo) Create(ctx context.Context, asset *model.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	r.assets[asset.ID] = *asset
	return nil
}

func (r *fakeAssetRepo) Update(ctx context.Context, asset *model.Asset) error {
	if _, ok := r.assets[asset.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.assets[asset.ID] = *asset
	return nil
}

func (r *fakeAssetRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	asset, ok := r.assets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := asset
	return &copied, nil
}

func (r *fakeAssetRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	r.forUpdateCalls++
	return r.FindByID(ctx, id)
}

func (r *fakeAssetRepo) FindByItemNumber(ctx context.Context, itemNumber string) (*model.Asset, error) {
	for _, asset := range r.assets {
		if asset.ItemNumber == itemNumber {
			copied := asset
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAssetRepo) List(ctx context.Context, page, limit int, status string) ([]model.Asset, int64, error) {
	var assets []model.Asset
	for _, asset := range r.assets {
		if status != "" && asset.Status != status {
			continue
		}
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ItemNumber < assets[j].ItemNumber })
	return assets, int64(len(assets)), nil
}

// --- audit ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) actions() []string {
	actions := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

// --- users ---

type fakeUserRepo struct {
	users  map[uuid.UUID]model.User
	tokens map[string]model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[uuid.UUID]model.User),
		tokens: make(map[string]model.RefreshToken),
	}
}

func (r *fakeUserRepo) add(user model.User) model.User {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	user, ok := r.users[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			copied := user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, int64(len(users)), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, parsed)
	return nil
}

func (r *fakeUserRepo) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	r.tokens[token.Token] = *token
	return nil
}

func (r *fakeUserRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	stored, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := stored
	if user, ok := r.users[stored.UserID]; ok {
		copied.User = user
	}
	return &copied, nil
}

func (r *fakeUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func (r *fakeUserRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	for key, token := range r.tokens {
		if token.ExpiresAt.Before(time.Now()) {
			delete(r.tokens, key)
		}
	}
	return nil
}
