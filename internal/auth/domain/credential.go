package domain

import (
	"time"

	"golang.org/x/oauth2"
)

// Credential is the decrypted OAuth grant for one owner's mailbox.
// It only exists in memory; storage holds a sealed CredentialRecord.
type Credential struct {
	OwnerID      string    `json:"owner_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Scope        string    `json:"scope"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token is unusable at now. A zero
// ExpiresAt never expires, as with oauth2.Token.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(now)
}

func (c *Credential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.ExpiresAt,
	}
}

// CredentialFromToken builds a credential from an oauth2 token. A token
// without a refresh token keeps the previous one.
func CredentialFromToken(ownerID string, tok *oauth2.Token, previous *Credential) *Credential {
	cred := &Credential{
		OwnerID:      ownerID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	if previous != nil {
		if cred.RefreshToken == "" {
			cred.RefreshToken = previous.RefreshToken
		}
		if cred.Scope == "" {
			cred.Scope = previous.Scope
		}
	}
	return cred
}

// CredentialRecord is the persisted, sealed form of a Credential.
type CredentialRecord struct {
	ID        string    `gorm:"primaryKey"`
	OwnerID   string    `gorm:"uniqueIndex;not null"`
	Blob      []byte    `gorm:"not null"`
	UpdatedAt time.Time
}

func (CredentialRecord) TableName() string { return "credentials" }

func CredentialRecordID(ownerID string) string { return "credential_" + ownerID }
