package engine

import (
	"fmt"
	"sync"

	"github.com/pilacorp/go-context-sdk/common/errs"
)

// Engine factories are registered once at startup under the service type
// string that context configurations declare. Lookup misses are hard
// configuration errors and are never retried.

var (
	registryMu         sync.RWMutex
	storageFactories   = make(map[string]StorageEngineFactory)
	messagingFactories = make(map[string]MessagingEngineFactory)
	notifyFactories    = make(map[string]NotificationEngineFactory)
)

// RegisterStorageEngine binds a storage engine factory to a service type.
func RegisterStorageEngine(serviceType string, factory StorageEngineFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	storageFactories[serviceType] = factory
}

// RegisterMessagingEngine binds a messaging engine factory to a service type.
func RegisterMessagingEngine(serviceType string, factory MessagingEngineFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	messagingFactories[serviceType] = factory
}

// RegisterNotificationEngine binds a notification engine factory to a
// service type.
func RegisterNotificationEngine(serviceType string, factory NotificationEngineFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	notifyFactories[serviceType] = factory
}

// StorageEngineByType looks up a registered storage engine factory.
func StorageEngineByType(serviceType string) (StorageEngineFactory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := storageFactories[serviceType]
	if !ok {
		return nil, fmt.Errorf("%w: storage %q", errs.ErrUnsupportedEngineType, serviceType)
	}

	return factory, nil
}

// MessagingEngineByType looks up a registered messaging engine factory.
func MessagingEngineByType(serviceType string) (MessagingEngineFactory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := messagingFactories[serviceType]
	if !ok {
		return nil, fmt.Errorf("%w: messaging %q", errs.ErrUnsupportedEngineType, serviceType)
	}

	return factory, nil
}

// NotificationEngineByType looks up a registered notification engine factory.
func NotificationEngineByType(serviceType string) (NotificationEngineFactory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := notifyFactories[serviceType]
	if !ok {
		return nil, fmt.Errorf("%w: notification %q", errs.ErrUnsupportedEngineType, serviceType)
	}

	return factory, nil
}
