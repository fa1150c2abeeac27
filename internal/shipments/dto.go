package shipments

type CreateShipmentRequest struct {
	DestBranchID int64               `json:"dest_branch_id" validate:"required,gt=0"`
	Items        []ShipmentItemInput `json:"items" validate:"required,min=1,dive"`
}

type ShipmentItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Qty       int64 `json:"qty" validate:"required,gt=0"`
}

// ReceiveShipmentRequest confirms arrival of some or all shipment lines. RequestID is
// a client-generated UUID; replaying the same id is a no-op returning current state.
type ReceiveShipmentRequest struct {
	RequestID string              `json:"request_id" validate:"required"`
	Items     []ShipmentItemInput `json:"items" validate:"required,min=1,dive"`
}

type ListShipmentsRequest struct {
	DestBranchID int64
	Status       Status
	Limit        int
	Offset       int
}
