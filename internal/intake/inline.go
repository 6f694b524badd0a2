package intake

import (
	"context"

	"registration/internal/registration"
)

// InlineStore keeps the screenshot bytes on the registration record itself.
type InlineStore struct{}

func (InlineStore) Save(_ context.Context, att *registration.Attachment) (registration.PaymentProof, error) {
	return registration.PaymentProof{
		Filename:     UniqueName(att),
		OriginalName: att.OriginalName,
		ContentType:  att.ContentType,
		Size:         att.Size(),
		Inline:       true,
		Data:         append([]byte(nil), att.Data...),
	}, nil
}

// Delete is a no-op; the bytes go away with the record.
func (InlineStore) Delete(context.Context, registration.PaymentProof) error { return nil }
