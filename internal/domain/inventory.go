package domain

// InventoryItem is an item as known by the external inventory/cabinet system.
type InventoryItem struct {
	ID            int64
	Barcode       string
	Name          string
	LocationID    int64
	ResponsibleID *int64
	DepartmentID  *int64
}
