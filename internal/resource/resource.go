package resource

import "github.com/enescakir/emoji"

const (
	ProjectName    = "itsu"
	ProjectVersion = "0.3.0"
	GithubItsuUrl  = "https://github.com/itsu-games/itsu"
)

const Graffiti = `
  _  _
 (_)| |_  ___  _   _
 | || __|/ __|| | | |
 | || |_ \__ \| |_| |
 |_| \__||___/ \__,_|
`

var GreetingCLI = emoji.Wolf.String() + " %s v%s - timed social-deduction matches for small cohorts\n" +
	"Project on github: %s\n\n"
