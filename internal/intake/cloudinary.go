package intake

import (
	"context"
	"path"
	"strings"

	"registration/internal/cloudinary"
	"registration/internal/registration"
)

// CloudinaryStore uploads screenshots to Cloudinary.
type CloudinaryStore struct {
	client *cloudinary.Client
	folder string
}

// NewCloudinaryStore uploads into folder (may be empty).
func NewCloudinaryStore(client *cloudinary.Client, folder string) *CloudinaryStore {
	return &CloudinaryStore{client: client, folder: strings.Trim(folder, "/")}
}

func (s *CloudinaryStore) Save(ctx context.Context, att *registration.Attachment) (registration.PaymentProof, error) {
	name := UniqueName(att)
	publicID := strings.TrimSuffix(name, path.Ext(name))
	res, err := s.client.Upload(ctx, att.Data, name, publicID, s.folder)
	if err != nil {
		return registration.PaymentProof{}, err
	}
	return registration.PaymentProof{
		Filename:     name,
		OriginalName: att.OriginalName,
		Location:     res.SecureURL,
		ContentType:  att.ContentType,
		Size:         att.Size(),
	}, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, proof registration.PaymentProof) error {
	publicID := strings.TrimSuffix(proof.Filename, path.Ext(proof.Filename))
	if s.folder != "" {
		publicID = s.folder + "/" + publicID
	}
	return s.client.Destroy(ctx, publicID)
}
