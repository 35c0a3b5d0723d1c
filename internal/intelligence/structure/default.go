package structure

// defaultCapability pairs the SMILES parser with the gg raster drawer.
type defaultCapability struct{}

// LoadDefaultCapability returns the built-in capability.
func LoadDefaultCapability() (Capability, error) {
	return defaultCapability{}, nil
}

func (defaultCapability) Parse(smiles string) (Tree, error) {
	m, err := ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (defaultCapability) NewDrawer(opts DrawerOptions) (Drawer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &ggDrawer{opts: opts}, nil
}
