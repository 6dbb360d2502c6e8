package model

import "time"

// AccountSummary is an immutable snapshot of a note as returned by the
// consumer search. It is never refreshed except by a new lookup.
type AccountSummary struct {
	// ID is the note id; carts are keyed by it.
	ID int `json:"id"`
	// AliasID is the id of the alias the note was matched through.
	AliasID int `json:"aliasId"`
	// DisplayName is the alias that matched the pattern.
	DisplayName string `json:"displayName"`
	// NoteName is the canonical name of the note (may differ from the alias).
	NoteName        string     `json:"noteName"`
	Balance         *int64     `json:"balance"`
	IsClubOrSpecial bool       `json:"isClubOrSpecial"`
	MembershipEnd   *time.Time `json:"membershipEnd,omitempty"`
	UserID          *int       `json:"userId,omitempty"`
	ClubID          *int       `json:"clubId,omitempty"`
	EmailConfirmed  bool       `json:"emailConfirmed"`
	ResourceType    string     `json:"resourceType"`
	DisplayImage    string     `json:"displayImage,omitempty"`
}

// MembershipActiveAt reports whether the membership is still running at t.
// Nil means the note carries no membership information.
func (a AccountSummary) MembershipActiveAt(t time.Time) *bool {
	if a.MembershipEnd == nil {
		return nil
	}
	active := !a.MembershipEnd.Before(t)
	return &active
}

// Label renders the alias, adding the note name when the alias differs.
func (a AccountSummary) Label() string {
	if a.NoteName != "" && a.NoteName != a.DisplayName {
		return a.DisplayName + " (aka. " + a.NoteName + ")"
	}
	return a.DisplayName
}

// SpecialAccount is a note through which real money enters or leaves the
// system (cash, card, cheque, bank transfer).
type SpecialAccount struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}
