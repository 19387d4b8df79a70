package config

// -----------------------------------------------------------------------------
// Embedded board profiles
//
// Key: board name (Config.Board)
// Val: YAML overlay applied on top of Default()
// -----------------------------------------------------------------------------

// Waveshare 4.2" 400x300, the reference build.
const cfgEpaper42 = `
display:
  width: 400
  height: 300
  full_refresh_interval: 200
`

// Waveshare 1.54" 200x200; smaller panel ghosts sooner.
const cfgEpaper154 = `
display:
  width: 200
  height: 200
  full_refresh_interval: 50
sleep:
  battery: 120s
`

var embeddedConfigs = map[string][]byte{
	"epaper42":  []byte(cfgEpaper42),
	"epaper154": []byte(cfgEpaper154),
}
