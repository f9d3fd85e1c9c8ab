package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownLane     = errors.New("unknown lane")
	ErrDuplicateLink   = errors.New("nodes are already connected")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrInvalidName     = errors.New("invalid snapshot name")
	ErrInvalidPatch    = errors.New("invalid node patch")
	ErrMatrixRequired  = errors.New("Step 3 数据不完整，无法导出三力三平台行动表。请先完成 Step 3。")
	ErrNoRepository    = errors.New("snapshot storage is not configured")
)
