// Package model holds the wire types shared by the context SDK: the secure
// context configuration published inside a DID document, the transient
// authentication context, and the message envelope used by messaging engines.
package model

import (
	"time"

	"github.com/google/uuid"
)

// PublicKeyInfo publishes a single public key and its type.
type PublicKeyInfo struct {
	Type         string `json:"type"`
	PublicKeyHex string `json:"publicKeyHex"`
}

// ContextPublicKeys are the two keys every context publishes: a signing key
// and an asymmetric (key agreement) key.
type ContextPublicKeys struct {
	SignKey PublicKeyInfo `json:"signKey"`
	AsymKey PublicKeyInfo `json:"asymKey"`
}

// ServiceEndpoint declares where a context service lives and which engine
// type serves it.
type ServiceEndpoint struct {
	Type        string `json:"type"`
	EndpointURI string `json:"endpointUri"`
}

// ContextServices groups the service endpoints of one context. Database and
// message servers are required; storage and notification are optional
// capabilities.
type ContextServices struct {
	DatabaseServer     ServiceEndpoint  `json:"databaseServer"`
	MessageServer      ServiceEndpoint  `json:"messageServer"`
	StorageServer      *ServiceEndpoint `json:"storageServer,omitempty"`
	NotificationServer *ServiceEndpoint `json:"notificationServer,omitempty"`
}

// SecureContextConfig is the published record of one context: its hash, its
// public keys and its service endpoints. The ID is the context hash; the
// plaintext context name never appears in published records.
type SecureContextConfig struct {
	ID         string            `json:"id"`
	PublicKeys ContextPublicKeys `json:"publicKeys"`
	Services   ContextServices   `json:"services"`
}

// ContextEndpoints are the service endpoints an account provisions for a
// new context. Database and messaging are required; storage and notification
// are optional.
type ContextEndpoints struct {
	Database     ServiceEndpoint
	Messaging    ServiceEndpoint
	Storage      *ServiceEndpoint
	Notification *ServiceEndpoint
}

// Services converts provisioning endpoints into the published service block.
func (e ContextEndpoints) Services() ContextServices {
	return ContextServices{
		DatabaseServer:     e.Database,
		MessageServer:      e.Messaging,
		StorageServer:      e.Storage,
		NotificationServer: e.Notification,
	}
}

// AuthConfig controls how an authentication context is obtained.
type AuthConfig struct {
	// Force bypasses the cache and performs a fresh handshake.
	Force bool
	// DeviceID identifies the device requesting access. Generated when empty.
	DeviceID string
}

// AuthContext is a transient per-(context, engine-type) credential. It is
// cached in memory until explicitly invalidated or the process restarts.
type AuthContext struct {
	ContextName  string `json:"contextName"`
	AuthType     string `json:"authType"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	EndpointURI  string `json:"endpointUri,omitempty"`
	DeviceID     string `json:"deviceId,omitempty"`
}

// Message is the envelope handed to messaging engines for sends and
// delivered to OnMessage subscribers.
type Message struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Data    any       `json:"data,omitempty"`
	Message string    `json:"message,omitempty"`
	SentAt  time.Time `json:"sentAt"`
}

// NewMessage builds a message envelope with a fresh id.
func NewMessage(toDID, messageType string, data any, message string) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Type:    messageType,
		To:      toDID,
		Data:    data,
		Message: message,
		SentAt:  time.Now().UTC(),
	}
}

// MessageFilter narrows a GetMessages query.
type MessageFilter struct {
	Type  string
	Limit int
}
