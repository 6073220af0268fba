package domain

// Star is a catalog entry: a named star with its published observables,
// ready to seed an inference run.
type Star struct {
	Name         string        `json:"name"`
	Observations []Observation `json:"observations"`
}

// ObservationFor returns the catalog observation of the named observable
func (s Star) ObservationFor(name string) (Observation, bool) {
	for _, o := range s.Observations {
		if o.Name == name {
			return o, true
		}
	}
	return Observation{}, false
}
