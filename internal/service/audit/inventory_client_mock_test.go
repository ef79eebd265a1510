package audit

import (
	"context"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"sync"
)

var _ inventoryClient = &inventoryClientMock{}

type inventoryClientMock struct {
	GetItemFunc            func(ctx context.Context, itemID int64) (*domain.InventoryItem, error)
	GetItemsByLocationFunc func(ctx context.Context, locationID int64) ([]domain.InventoryItem, error)
	MoveItemFunc           func(ctx context.Context, itemID int64, toLocationID int64, idempotencyKey string) error
	ResolveBarcodeFunc     func(ctx context.Context, barcode string) (*domain.InventoryItem, error)
	SetResponsibleFunc     func(ctx context.Context, itemID int64, userID *int64, idempotencyKey string) error

	calls struct {
		GetItem []struct {
			Ctx    context.Context
			ItemID int64
		}
		GetItemsByLocation []struct {
			Ctx        context.Context
			LocationID int64
		}
		MoveItem []struct {
			Ctx            context.Context
			ItemID         int64
			ToLocationID   int64
			IdempotencyKey string
		}
		ResolveBarcode []struct {
			Ctx     context.Context
			Barcode string
		}
		SetResponsible []struct {
			Ctx            context.Context
			ItemID         int64
			UserID         *int64
			IdempotencyKey string
		}
	}
	lockGetItem            sync.RWMutex
	lockGetItemsByLocation sync.RWMutex
	lockMoveItem           sync.RWMutex
	lockResolveBarcode     sync.RWMutex
	lockSetResponsible     sync.RWMutex
}

func (mock *inventoryClientMock) GetItem(ctx context.Context, itemID int64) (*domain.InventoryItem, error) {
	if mock.GetItemFunc == nil {
		panic("inventoryClientMock.GetItemFunc: method is nil but inventoryClient.GetItem was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		ItemID int64
	}{Ctx: ctx, ItemID: itemID}
	mock.lockGetItem.Lock()
	mock.calls.GetItem = append(mock.calls.GetItem, callInfo)
	mock.lockGetItem.Unlock()
	return mock.GetItemFunc(ctx, itemID)
}

func (mock *inventoryClientMock) GetItemCalls() []struct {
	Ctx    context.Context
	ItemID int64
} {
	mock.lockGetItem.RLock()
	calls := mock.calls.GetItem
	mock.lockGetItem.RUnlock()
	return calls
}

func (mock *inventoryClientMock) GetItemsByLocation(ctx context.Context, locationID int64) ([]domain.InventoryItem, error) {
	if mock.GetItemsByLocationFunc == nil {
		panic("inventoryClientMock.GetItemsByLocationFunc: method is nil but inventoryClient.GetItemsByLocation was just called")
	}
	callInfo := struct {
		Ctx        context.Context
		LocationID int64
	}{Ctx: ctx, LocationID: locationID}
	mock.lockGetItemsByLocation.Lock()
	mock.calls.GetItemsByLocation = append(mock.calls.GetItemsByLocation, callInfo)
	mock.lockGetItemsByLocation.Unlock()
	return mock.GetItemsByLocationFunc(ctx, locationID)
}

func (mock *inventoryClientMock) GetItemsByLocationCalls() []struct {
	Ctx        context.Context
	LocationID int64
} {
	mock.lockGetItemsByLocation.RLock()
	calls := mock.calls.GetItemsByLocation
	mock.lockGetItemsByLocation.RUnlock()
	return calls
}

func (mock *inventoryClientMock) MoveItem(ctx context.Context, itemID int64, toLocationID int64, idempotencyKey string) error {
	if mock.MoveItemFunc == nil {
		panic("inventoryClientMock.MoveItemFunc: method is nil but inventoryClient.MoveItem was just called")
	}
	callInfo := struct {
		Ctx            context.Context
		ItemID         int64
		ToLocationID   int64
		IdempotencyKey string
	}{Ctx: ctx, ItemID: itemID, ToLocationID: toLocationID, IdempotencyKey: idempotencyKey}
	mock.lockMoveItem.Lock()
	mock.calls.MoveItem = append(mock.calls.MoveItem, callInfo)
	mock.lockMoveItem.Unlock()
	return mock.MoveItemFunc(ctx, itemID, toLocationID, idempotencyKey)
}

func (mock *inventoryClientMock) MoveItemCalls() []struct {
	Ctx            context.Context
	ItemID         int64
	ToLocationID   int64
	IdempotencyKey string
} {
	mock.lockMoveItem.RLock()
	calls := mock.calls.MoveItem
	mock.lockMoveItem.RUnlock()
	return calls
}

func (mock *inventoryClientMock) ResolveBarcode(ctx context.Context, barcode string) (*domain.InventoryItem, error) {
	if mock.ResolveBarcodeFunc == nil {
		panic("inventoryClientMock.ResolveBarcodeFunc: method is nil but inventoryClient.ResolveBarcode was just called")
	}
	callInfo := struct {
		Ctx     context.Context
		Barcode string
	}{Ctx: ctx, Barcode: barcode}
	mock.lockResolveBarcode.Lock()
	mock.calls.ResolveBarcode = append(mock.calls.ResolveBarcode, callInfo)
	mock.lockResolveBarcode.Unlock()
	return mock.ResolveBarcodeFunc(ctx, barcode)
}

func (mock *inventoryClientMock) ResolveBarcodeCalls() []struct {
	Ctx     context.Context
	Barcode string
} {
	mock.lockResolveBarcode.RLock()
	calls := mock.calls.ResolveBarcode
	mock.lockResolveBarcode.RUnlock()
	return calls
}

func (mock *inventoryClientMock) SetResponsible(ctx context.Context, itemID int64, userID *int64, idempotencyKey string) error {
	if mock.SetResponsibleFunc == nil {
		panic("inventoryClientMock.SetResponsibleFunc: method is nil but inventoryClient.SetResponsible was just called")
	}
	callInfo := struct {
		Ctx            context.Context
		ItemID         int64
		UserID         *int64
		IdempotencyKey string
	}{Ctx: ctx, ItemID: itemID, UserID: userID, IdempotencyKey: idempotencyKey}
	mock.lockSetResponsible.Lock()
	mock.calls.SetResponsible = append(mock.calls.SetResponsible, callInfo)
	mock.lockSetResponsible.Unlock()
	return mock.SetResponsibleFunc(ctx, itemID, userID, idempotencyKey)
}

func (mock *inventoryClientMock) SetResponsibleCalls() []struct {
	Ctx            context.Context
	ItemID         int64
	UserID         *int64
	IdempotencyKey string
} {
	mock.lockSetResponsible.RLock()
	calls := mock.calls.SetResponsible
	mock.lockSetResponsible.RUnlock()
	return calls
}
