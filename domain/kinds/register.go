// Package kinds declares the entity and relation kinds of the graph and
// registers them with the catalog at startup.
package kinds

import (
	"errors"

	"github.com/adsharma/truth-serum/domain/schema"
)

// RelationKinds lists every declared relation kind except instance-of,
// which the catalog registers itself.
var RelationKinds = []string{
	CapitalRelation,
	AddressStreetAddressRelation,
	AddressCityRelation,
	AddressPostalCodeRelation,
	StreetAddressStreetRelation,
	BirthDateRelation,
	BirthPlaceRelation,
	ResidesInRelation,
	DeathDateRelation,
	FoundedDateRelation,
	MemberOfRelation,
	FounderOfRelation,
	EventStartDateRelation,
	EventEndDateRelation,
	ConferenceEventRelation,
	OrganizedByRelation,
	AttendeeOfRelation,
	LocatedAtRelation,
	BuiltDateRelation,
	MonumentBuildingRelation,
	ArchitectOfRelation,
	BuiltByRelation,
}

// Register adds every declared kind to c.
func Register(c *schema.Catalog) error {
	errs := []error{
		register[Country](c, "Country"),
		register[City](c, "City"),
		register[Address](c, "Address"),
		register[Street](c, "Street"),
		register[StreetAddress](c, "StreetAddress"),
		register[PostalCode](c, "PostalCode"),
		register[Person](c, "Person"),
		register[Organization](c, "Organization"),
		register[Event](c, "Event"),
		register[Date](c, "Date"),
		register[Conference](c, "Conference"),
		register[Building](c, "Building"),
		register[Monument](c, "Monument"),
		register[Viewpoint](c, "Viewpoint"),
		register[Ideas](c, "Ideas"),
	}
	for _, name := range RelationKinds {
		c.RegisterRelation(name)
	}
	return errors.Join(errs...)
}

func register[T any, PT interface {
	*T
	schema.Entity
}](c *schema.Catalog, name string) error {
	_, err := schema.Register[T, PT](c, name)
	return err
}
