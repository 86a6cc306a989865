package service

import (
	"context"
	"testing"

	"stockroom/internal/model"
	"stockroom/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStockFixture() (*fakeStockItemRepo, *fakeAuditRepo, StockService) {
	itemRepo := newFakeStockItemRepo()
	auditRepo := &fakeAuditRepo{}
	return itemRepo, auditRepo, NewStockService(itemRepo, auditRepo, passthroughTxManager{})
}

func TestCreateGeneralItem(t *testing.T) {
	_, auditRepo, svc := newStockFixture()

	res, err := svc.CreateItem(context.Background(), uuid.New().String(), CreateItemRequest{
		Name:     "Printer paper",
		Quantity: 50,
		Category: model.CategoryGeneral,
		UnitType: model.UnitBox,
	})
	require.NoError(t, err)

	assert.Equal(t, 50, res.Quantity)
	assert.Equal(t, model.CategoryGeneral, res.Category)
	assert.Contains(t, auditRepo.actions(), model.ActionCreateItem)
}

func TestCreateMedicalItemRequiresBatchAndExpiry(t *testing.T) {
	_, _, svc := newStockFixture()

	_, err := svc.CreateItem(context.Background(), uuid.New().String(), CreateItemRequest{
		Name:     "Amoxicillin",
		Category: model.CategoryMedical,
		UnitType: model.UnitBox,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	expiry := "2027-06-30"
	res, err := svc.CreateItem(context.Background(), uuid.New().String(), CreateItemRequest{
		Name:        "Amoxicillin",
		Category:    model.CategoryMedical,
		BatchNumber: "B-2207",
		ExpiryDate:  &expiry,
		UnitType:    model.UnitBox,
	})
	require.NoError(t, err)
	assert.Equal(t, "B-2207", res.BatchNumber)
	assert.Equal(t, "2027-06-30", res.ExpiryDate)
}

func TestCreateItemRejectsMalformedExpiry(t *testing.T) {
	_, _, svc := newStockFixture()

	expiry := "30/06/2027"
	_, err := svc.CreateItem(context.Background(), uuid.New().String(), CreateItemRequest{
		Name:        "Amoxicillin",
		Category:    model.CategoryMedical,
		BatchNumber: "B-2207",
		ExpiryDate:  &expiry,
		UnitType:    model.UnitBox,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestUpdateItemDoesNotTouchQuantity(t *testing.T) {
	itemRepo, _, svc := newStockFixture()
	item := itemRepo.add(model.StockItem{Name: "Paper", Quantity: 50, Category: model.CategoryGeneral, UnitType: model.UnitBox})

	res, err := svc.UpdateItem(context.Background(), uuid.New().String(), item.ID.String(), UpdateItemRequest{
		Name:     "Paper A4",
		Category: model.CategoryGeneral,
		UnitType: model.UnitPcs,
	})
	require.NoError(t, err)

	assert.Equal(t, "Paper A4", res.Name)
	assert.Equal(t, 50, res.Quantity)
	assert.Equal(t, 50, itemRepo.quantity(item.ID))
}

func TestDeleteItem(t *testing.T) {
	itemRepo, auditRepo, svc := newStockFixture()
	item := itemRepo.add(model.StockItem{Name: "Paper", Quantity: 50})

	require.NoError(t, svc.DeleteItem(context.Background(), uuid.New().String(), item.ID.String()))

	_, err := svc.GetItem(context.Background(), item.ID.String())
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Contains(t, auditRepo.actions(), model.ActionDeleteItem)
}

func TestGetItemsFiltersByCategory(t *testing.T) {
	itemRepo, _, svc := newStockFixture()
	itemRepo.add(model.StockItem{Name: "Paper", Category: model.CategoryGeneral})
	itemRepo.add(model.StockItem{Name: "Gauze", Category: model.CategoryMedical})

	medical, total, err := svc.GetItems(context.Background(), 1, 20, "", model.CategoryMedical)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, medical, 1)
	assert.Equal(t, "Gauze", medical[0].Name)
}
