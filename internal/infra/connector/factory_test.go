package connector

import (
	"errors"
	"testing"
	"time"

	"catchup-feed/internal/domain/entity"
)

func TestFactory_For_AllConnectorKindsRegistered(t *testing.T) {
	f := NewFactory(10*time.Second, defaultMaxBodyBytes, true)

	kinds := []entity.ConnectorKind{
		entity.ConnectorFeed,
		entity.ConnectorHTMLPage,
		entity.ConnectorShortPost,
		entity.ConnectorParaphrasedHandle,
		entity.ConnectorFederatedHandle,
		entity.ConnectorLongPost,
		entity.ConnectorChannelPost,
		entity.ConnectorSearchAlert,
		entity.ConnectorDocumentBinary,
	}
	for _, kind := range kinds {
		d, err := f.For(kind)
		if err != nil {
			t.Errorf("For(%s) error = %v", kind, err)
		}
		if d == nil {
			t.Errorf("For(%s) returned nil driver", kind)
		}
	}
}

func TestFactory_For_UnknownKind(t *testing.T) {
	f := NewFactory(10*time.Second, defaultMaxBodyBytes, true)
	if _, err := f.For(entity.ConnectorKind("not-a-kind")); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("For() error = %v, want ErrUnsupportedKind", err)
	}
}
