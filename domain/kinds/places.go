package kinds

import (
	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/domain/schema"
)

type Country struct {
	bun.BaseModel `bun:"table:countries,alias:co"`
	schema.Node

	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

type City struct {
	bun.BaseModel `bun:"table:cities,alias:ci"`
	schema.Node

	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

// Address is a geographic point.
type Address struct {
	bun.BaseModel `bun:"table:addresses,alias:ad"`
	schema.Node

	Lat  float64 `bun:"lat" json:"lat" yaml:"lat"`
	Long float64 `bun:"long" json:"long" yaml:"long"`
}

type Street struct {
	bun.BaseModel `bun:"table:streets,alias:st"`
	schema.Node

	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

// StreetAddress is a house number on a street.
type StreetAddress struct {
	bun.BaseModel `bun:"table:street_addresses,alias:sa"`
	schema.Node

	Number int64 `bun:"number" json:"number" yaml:"number"`
}

type PostalCode struct {
	bun.BaseModel `bun:"table:postal_codes,alias:pc"`
	schema.Node

	Number int64 `bun:"number" json:"number" yaml:"number"`
}

const (
	CapitalRelation              = "CapitalRelation"
	AddressStreetAddressRelation = "AddressStreetAddressRelation"
	AddressCityRelation          = "AddressCityRelation"
	AddressPostalCodeRelation    = "AddressPostalCodeRelation"
	StreetAddressStreetRelation  = "StreetAddressStreetRelation"
)
