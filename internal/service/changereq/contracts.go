package changereq

import (
	"context"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
)

type notifier interface {
	Deliver(ctx context.Context, ns ...notify.Notification)
}

// sealer encrypts proposed PHI and opens it again for permitted viewers.
type sealer interface {
	Encrypt(plaintext string) (domain.Ciphertext, error)
	Decrypt(c domain.Ciphertext) (string, error)
}
