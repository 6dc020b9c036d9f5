package scale

// Mapper converts raw aggregates (accuracies) to scaled scores per engine version.
type Mapper interface {
	Scale(raw map[string]float64) map[string]float64
}

var registry = map[string]Mapper{}

// Register binds a mapper to a key like "toeic.v1.scale".
func Register(key string, m Mapper) { registry[key] = m }

// Apply applies a registered mapper; returns raw unchanged if the key is unknown.
func Apply(key string, raw map[string]float64) map[string]float64 {
	if m, ok := registry[key]; ok && m != nil {
		return m.Scale(raw)
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
