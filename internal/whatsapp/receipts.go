package whatsapp

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ReceiptStore keeps receipt photos attached to postings. Media download
// from the Cloud API is not wired yet; SaveReceipt records a placeholder
// file so the attachment reference survives in the ledger.
// TODO: download the media binary via GET /{media-id} once an app token
// with whatsapp_business_messaging scope is provisioned.
type ReceiptStore struct {
	dir string
}

func NewReceiptStore(dir string) (*ReceiptStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create receipts directory: %w", err)
	}
	return &ReceiptStore{dir: dir}, nil
}

// SaveReceipt reserves a file for the media id and returns its path, which
// is what gets stored as the movement's attachment reference.
func (r *ReceiptStore) SaveReceipt(mediaID string) (string, error) {
	if mediaID == "" {
		mediaID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	path := filepath.Join(r.dir, "factura_"+mediaID+".jpg")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, nil, 0644); err != nil {
			return "", fmt.Errorf("write receipt placeholder: %w", err)
		}
	}
	return path, nil
}
