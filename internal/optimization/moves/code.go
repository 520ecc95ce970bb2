package moves

// Code is the packed identifier of a move, used for tabu membership and
// hashing.
//
// Bit layout (most significant first):
//
//	31..30  kind   (00 node swap, 01 edge reversal)
//	29..15  I      (15 bits)
//	14..0   J      (15 bits)
//
// Decode(Encode(m)) == m for every move whose indices fit the fields.
type Code uint32

const (
	indexBits = 15
	indexMask = 1<<indexBits - 1
	kindShift = 2 * indexBits

	// MaxNodes is the largest dimension whose positions fit an index field.
	MaxNodes = indexMask
)

// Encode packs m. Indices must be below MaxNodes.
func (m Move) Encode() Code {
	return Code(uint32(m.Kind)<<kindShift | uint32(m.I&indexMask)<<indexBits | uint32(m.J&indexMask))
}

// Decode unpacks c.
func (c Code) Decode() Move {
	return Move{
		Kind: Kind(c >> kindShift),
		I:    int(c>>indexBits) & indexMask,
		J:    int(c) & indexMask,
	}
}
