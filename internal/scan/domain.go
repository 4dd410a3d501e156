// Package scan implements the scan-ingestion pipeline: the single entry
// point that receives a barcode scan from a device, resolves it to a product,
// appends the audit movement, applies the stock decrement and reports the
// outcome.
package scan

import "errors"

// Event is the wire payload emitted by a scanning device.
type Event struct {
	Barcode   string `json:"barcode"`
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
}

// ProductResult is the stock transition echoed back to the device.
type ProductResult struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	OldQuantity int     `json:"old_quantity"`
	NewQuantity int     `json:"new_quantity"`
	Category    *string `json:"category"`
}

// Result is the outcome of one processed scan.
type Result struct {
	Product  ProductResult
	Movement string // id of the appended movement record
}

// User-facing messages. The device firmware displays these verbatim.
const (
	MsgProcessed       = "Barcode berhasil diproses"
	MsgProductNotFound = "Produk tidak ditemukan"
	MsgMovementFailed  = "Gagal mencatat pergerakan"
	MsgServerError     = "Server error"
)

var (
	// ErrInvalidEvent indicates a malformed payload, rejected before any
	// store access.
	ErrInvalidEvent = errors.New("scan: invalid event")
	// ErrProductNotFound indicates no product matches the scanned code.
	ErrProductNotFound = errors.New("scan: product not found")
	// ErrMovementWrite indicates the audit record insert failed; the scan
	// is aborted before any stock mutation.
	ErrMovementWrite = errors.New("scan: movement write failed")
)
