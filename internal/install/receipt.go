package install

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// receiptVersion is the schema version written into every receipt.
const receiptVersion = 1

// Receipt records a completed install. Receipts are informational: they are
// never consulted to skip an install.
type Receipt struct {
	Version     int       `json:"version"`
	ID          string    `json:"id"`
	Package     string    `json:"package"`
	PkgVersion  string    `json:"package_version"`
	Platform    string    `json:"platform"`
	Digest      string    `json:"digest"`
	SourceURL   string    `json:"source_url"`
	Path        string    `json:"path"`
	SmokeTested bool      `json:"smoke_tested"`
	InstalledAt time.Time `json:"installed_at"`
}

// NewReceipt creates a receipt with a fresh ID and the current time.
func NewReceipt(pkg, version, platform, digest, sourceURL, path string) *Receipt {
	return &Receipt{
		Version:     receiptVersion,
		ID:          uuid.New().String(),
		Package:     pkg,
		PkgVersion:  version,
		Platform:    platform,
		Digest:      digest,
		SourceURL:   sourceURL,
		Path:        path,
		InstalledAt: time.Now().UTC(),
	}
}

func receiptDir(stateDir string) string {
	return filepath.Join(stateDir, "receipts")
}

// WriteReceipt writes r to <stateDir>/receipts/<package>.json atomically,
// replacing the receipt of any earlier install of the package.
func WriteReceipt(stateDir string, r *Receipt) error {
	dir := receiptDir(stateDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create receipt directory: %w", err)
	}

	finalPath := filepath.Join(dir, r.Package+".json")
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temporary receipt file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename receipt file: %w", err)
	}

	syncDir(dir)
	return nil
}

// ReadReceipt reads a single receipt file.
func ReadReceipt(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read receipt file: %w", err)
	}

	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal receipt %s: %w", filepath.Base(path), err)
	}

	return &r, nil
}

// ListReceipts returns every receipt under stateDir sorted by package name.
// A missing receipt directory yields no receipts.
func ListReceipts(stateDir string) ([]*Receipt, error) {
	entries, err := os.ReadDir(receiptDir(stateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list receipts: %w", err)
	}

	var receipts []*Receipt
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		r, err := ReadReceipt(filepath.Join(receiptDir(stateDir), e.Name()))
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}

	sort.Slice(receipts, func(i, j int) bool { return receipts[i].Package < receipts[j].Package })
	return receipts, nil
}
