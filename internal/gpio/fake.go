package gpio

// FakeReader is a test double that returns scripted input samples.
type FakeReader struct {
	// Samples contains one scripted sample per poll cycle.
	// Each call to TakeRotation() starts the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int
	cur   Sample

	// Closed tracks if Close was called
	Closed bool

	// DockError, if set, will be returned by Docked()
	DockError error
}

// Sample is the input seen during one poll cycle.
type Sample struct {
	Rotation int32
	Edges    []Edge
	Docked   bool
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples, index: -1}
}

// TakeRotation moves to the next sample and returns its rotation.
// Once samples are exhausted, cycles are empty and keep the last dock level.
func (f *FakeReader) TakeRotation() int32 {
	f.index++
	if f.index < len(f.Samples) {
		f.cur = f.Samples[f.index]
	} else {
		f.cur = Sample{Docked: f.cur.Docked}
	}
	return f.cur.Rotation
}

// DrainEdges delivers the current sample's edges once.
func (f *FakeReader) DrainEdges(fn func(Edge)) {
	for _, e := range f.cur.Edges {
		fn(e)
	}
	f.cur.Edges = nil
}

// Docked returns the current sample's dock level. Before the first cycle
// it returns the first sample's level.
func (f *FakeReader) Docked() (bool, error) {
	if f.DockError != nil {
		return false, f.DockError
	}
	if f.index < 0 && len(f.Samples) > 0 {
		return f.Samples[0].Docked, nil
	}
	return f.cur.Docked, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = -1
	f.cur = Sample{}
	f.Closed = false
}
