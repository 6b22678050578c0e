// Package linkage names the columns of the patient record-linkage dataset
// and declares its schema.
package linkage

import "github.com/KaramelBytes/linkstat/internal/frame"

const (
	ID1       = "id_1"
	ID2       = "id_2"
	FnameC1   = "cmp_fname_c1"
	FnameC2   = "cmp_fname_c2"
	LnameC1   = "cmp_lname_c1"
	LnameC2   = "cmp_lname_c2"
	Sex       = "cmp_sex"
	BirthDay  = "cmp_bd"
	BirthMon  = "cmp_bm"
	BirthYear = "cmp_by"
	Postcode  = "cmp_plz"
	IsMatch   = "is_match"
)

// NullToken marks missing comparison values in the source files.
const NullToken = "?"

// DefaultThreshold is the score cut-off used with DefaultFeatures.
const DefaultThreshold = 4.0

// DefaultFeatures are the comparison fields with the widest mean separation
// between matches and misses and near-complete coverage.
var DefaultFeatures = []string{LnameC1, Postcode, BirthYear, BirthDay, BirthMon}

// Identifiers are excluded from feature ranking.
var Identifiers = []string{ID1, ID2}

// Schema is the declared layout of the block_*.csv files. Passing it to the
// loader skips the inference pass.
func Schema() frame.Schema {
	return frame.MustSchema(
		frame.Field{Name: ID1, Kind: frame.KindInt},
		frame.Field{Name: ID2, Kind: frame.KindInt},
		frame.Field{Name: FnameC1, Kind: frame.KindDouble, Nullable: true},
		frame.Field{Name: FnameC2, Kind: frame.KindDouble, Nullable: true},
		frame.Field{Name: LnameC1, Kind: frame.KindDouble, Nullable: true},
		frame.Field{Name: LnameC2, Kind: frame.KindDouble, Nullable: true},
		frame.Field{Name: Sex, Kind: frame.KindInt, Nullable: true},
		frame.Field{Name: BirthDay, Kind: frame.KindInt, Nullable: true},
		frame.Field{Name: BirthMon, Kind: frame.KindInt, Nullable: true},
		frame.Field{Name: BirthYear, Kind: frame.KindInt, Nullable: true},
		frame.Field{Name: Postcode, Kind: frame.KindInt, Nullable: true},
		frame.Field{Name: IsMatch, Kind: frame.KindBool},
	)
}
