package adjustments

type CreateAdjustmentRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	BranchID  int64  `json:"branch_id" validate:"required,gt=0"`
	Qty       int64  `json:"qty" validate:"required"`
	Type      Type   `json:"type" validate:"required"`
	Reason    string `json:"reason" validate:"max=500"`
}

type DirectAdjustRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Qty       int64  `json:"qty" validate:"required"`
	Reason    string `json:"reason" validate:"max=500"`
}
