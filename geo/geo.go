// Package geo holds the geographic reference data used as filter
// criteria: countries, states, cities, bricks, zips, regions. It is
// deliberately thin; the scheduler and resolver only ever consume these
// as opaque identifiers (a visit's brick either is or is not in a form's
// brick list, with no tree expansion).
package geo

// ID identifies a geographic entity of any level.
type ID int64

type Country struct {
	ID   ID
	Name string
}

type State struct {
	ID      ID
	Name    string
	Country ID
}

type City struct {
	ID    ID
	Name  string
	State ID
}

// Brick is the sales-territory unit forms match against directly.
type Brick struct {
	ID   ID
	Name string
}

type Zip struct {
	ID    ID
	Name  string
	Brick ID
}

type Region struct {
	ID   ID
	Name string
	City ID
	Zip  ID
}

// BrickOf resolves a zip to its brick through a zip index. Returns 0
// when the zip is unknown.
func BrickOf(zips map[ID]Zip, zip ID) ID {
	z, ok := zips[zip]
	if !ok {
		return 0
	}
	return z.Brick
}
