package supply

// Sample goods for the fabric mask example.
var (
	FabricMask  = Atom{"QH00001", "Fabric Mask"}
	NWPP        = Atom{"QH00002", "Non-woven Polypropylene bag"}
	BiasTape    = Atom{"Q4902580", "Bias tape"}
	TinTie      = Atom{"QH00003", "Coffee tin tie"}
	PipeCleaner = Atom{"Q3355092", "pipe cleaners"}

	SewingMachine = Atom{"Q49013", "Sewing machine"}
	Scissors      = Atom{"Q40847", "Scissors"}
	Pins          = Atom{"Q111591519", "Pins"}
	MeasuringTape = Atom{"Q107196205", "Measuring Tape"}

	ScrapFabric = Atom{"Q1378670", "Scrap Fabric"}
)

// MaskDesign makes a fabric mask, leaving scrap fabric behind.
func MaskDesign() Design {
	return NewDesign(FabricMask,
		[]Atom{NWPP, BiasTape, TinTie, PipeCleaner},
		[]Atom{SewingMachine, Scissors, Pins, Scissors},
		[]Atom{ScrapFabric},
	)
}

// JamesMakerSpace stocks everything MaskDesign needs.
func JamesMakerSpace() *AtomNetwork {
	return NewAtomNetwork("James Maker Space",
		[]Atom{NWPP, BiasTape, TinTie, PipeCleaner},
		[]Atom{SewingMachine, Scissors, Pins, MeasuringTape},
	)
}

// ChairNetwork is network "A": two interchangeable chair makers and one
// supplier each for legs, seats and backs.
func ChairNetwork() *Network {
	return NewNetwork("A",
		NewSupply("chair_1", []string{"chair"}, []string{"leg", "seat", "back"}),
		NewSupply("chair_2", []string{"chair"}, []string{"leg", "seat", "back"}),
		NewSupply("leg_1", []string{"leg"}, nil),
		NewSupply("seat_1", []string{"seat"}, nil),
		NewSupply("back_1", []string{"back"}, nil),
	)
}
