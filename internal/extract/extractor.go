package extract

import (
	"context"

	"github.com/tuanngo/cashbook/internal/domain"
)

// Extractor turns a receipt or transfer-screenshot image into a raw field
// bag. It is the one opaque external capability of the ingestion core: any
// failure (network, quota, unparseable model output) is a per-item error the
// pipeline records against the item's filename, never a batch abort.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (domain.RawFields, error)
}
