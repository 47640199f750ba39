package wirestore

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/photofeed/internal/remote"
)

// Gateway operations. Every client frame names one; the gateway answers with
// a frame carrying the same correlation id.
const (
	opSignUp        = "auth.sign_up"
	opSignIn        = "auth.sign_in"
	opSignOut       = "auth.sign_out"
	opUpdateProfile = "auth.update_profile"
	opDeleteAccount = "auth.delete_account"
	opRefresh       = "auth.refresh"

	opSubscribeCollection = "store.subscribe_collection"
	opSubscribeDocument   = "store.subscribe_document"
	opUnsubscribe         = "store.unsubscribe"
	opCreate              = "store.create"
	opSet                 = "store.set"
	opUpdate              = "store.update"
	opDelete              = "store.delete"
	opList                = "store.list"
)

// Server frame kinds. "result" answers a call; the rest are pushes addressed
// to a subscription.
const (
	kindResult   = "result"
	kindSnapshot = "snapshot"
	kindDocument = "document"
	kindSubError = "sub_error"
)

// Gateway error codes carried on result frames.
const (
	codeNotFound           = "not_found"
	codePermissionDenied   = "permission_denied"
	codeUnavailable        = "unavailable"
	codeInvalidArgument    = "invalid_argument"
	codeUnauthenticated    = "unauthenticated"
	codeInvalidCredentials = "invalid_credentials"
)

const msgTokenExpired = "token expired"

type clientFrame struct {
	ID    string `json:"id"`
	Op    string `json:"op"`
	Token string `json:"token,omitempty"`

	// Store fields.
	Collection string          `json:"collection,omitempty"`
	Path       string          `json:"path,omitempty"`
	OrderBy    string          `json:"orderBy,omitempty"`
	Direction  string          `json:"direction,omitempty"`
	Field      string          `json:"field,omitempty"`
	Equals     json.RawMessage `json:"equals,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Fields     json.RawMessage `json:"fields,omitempty"`
	Sub        string          `json:"sub,omitempty"`

	// Auth fields.
	Email        string  `json:"email,omitempty"`
	Password     string  `json:"password,omitempty"`
	DisplayName  *string `json:"displayName,omitempty"`
	PhotoURL     *string `json:"photoURL,omitempty"`
	RefreshToken string  `json:"refreshToken,omitempty"`
}

type serverFrame struct {
	ID   string `json:"id,omitempty"`
	Kind string `json:"kind"`
	Sub  string `json:"sub,omitempty"`

	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`

	Docs   []wireDocument `json:"docs,omitempty"`
	Doc    *wireDocument  `json:"doc,omitempty"`
	Exists bool           `json:"exists,omitempty"`
	DocID  string         `json:"docId,omitempty"`

	Identity     *wireIdentity `json:"identity,omitempty"`
	AccessToken  string        `json:"accessToken,omitempty"`
	RefreshToken string        `json:"refreshToken,omitempty"`
}

type wireDocument struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Data      json.RawMessage `json:"data"`
}

func (d wireDocument) toRemote() remote.Document {
	return remote.Document{ID: d.ID, CreatedAt: d.CreatedAt, Data: d.Data}
}

type wireIdentity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

func directionString(d remote.Direction) string {
	if d == remote.Descending {
		return "desc"
	}
	return "asc"
}
