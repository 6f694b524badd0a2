package intake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"registration/internal/registration"
)

// DiskStore writes payment screenshots into a local directory.
type DiskStore struct {
	Dir string
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{Dir: dir}, nil
}

func (s *DiskStore) Save(_ context.Context, att *registration.Attachment) (registration.PaymentProof, error) {
	name := UniqueName(att)
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, att.Data, 0o644); err != nil {
		return registration.PaymentProof{}, fmt.Errorf("write %s: %w", name, err)
	}
	return registration.PaymentProof{
		Filename:     name,
		OriginalName: att.OriginalName,
		Location:     path,
		ContentType:  att.ContentType,
		Size:         att.Size(),
	}, nil
}

func (s *DiskStore) Delete(_ context.Context, proof registration.PaymentProof) error {
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(proof.Filename)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
