package ruleset

// Archetype is a character class chosen at registration. It fixes base stats
// and never changes afterwards.
type Archetype struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	BaseHP     int    `yaml:"base_hp"`
	BaseAttack int    `yaml:"base_attack"`
	// Image is an optional portrait URL; delivery is the transport's concern.
	Image string `yaml:"image"`
}
