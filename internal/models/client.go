// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package models

// Company categories stored in the backend's companies table.
const (
	CategoryPartner       = "partner"
	CategorySupplier      = "supplier"
	CategoryClient        = "client"
	CategoryInternalGroup = "internal_group"
)

// CompanyRef is the joined view of a company referenced by another record.
type CompanyRef struct {
	ID       string `json:"id" validate:"required,notblank"`
	Name     string `json:"nome" validate:"required,notblank"`
	Category string `json:"categoria"`
}

// IsPartner reports whether the company is tagged as a partner.
func (c *CompanyRef) IsPartner() bool {
	return c != nil && c.Category == CategoryPartner
}

// ClientOption is one entry of the client roster: a client company together
// with the internal company that owns the relationship.
type ClientOption struct {
	ID       string     `json:"id" validate:"required,notblank"`
	Name     string     `json:"nome" validate:"required,notblank"`
	Category string     `json:"categoria"`
	Owner    CompanyRef `json:"owner"`
}

// Client is the single-entity view of a client used by the assembler.
type Client struct {
	ID       string     `json:"id" validate:"required,notblank"`
	Name     string     `json:"nome" validate:"required,notblank"`
	Category string     `json:"categoria"`
	Owner    CompanyRef `json:"owner" validate:"-"`
	Active   bool       `json:"ativo"`
}

// ClientOptionRow is a raw roster row as returned by the store. The owner
// join may be missing.
type ClientOptionRow struct {
	ID            string
	Name          string
	Category      string
	OwnerID       *string
	OwnerName     *string
	OwnerCategory *string
}

// ClientRow is a raw single-client row as returned by the store.
type ClientRow struct {
	ID            string
	Name          string
	Category      string
	Active        bool
	OwnerID       *string
	OwnerName     *string
	OwnerCategory *string
}
