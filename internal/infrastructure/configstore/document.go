package configstore

type User struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Schedule mirrors the on-disk schedule block. Pointer fields distinguish
// "absent" from zero values so the legacy fixed-times form can be detected.
type Schedule struct {
	DayOfWeek     *int     `json:"day_of_week"`
	StartTime     *string  `json:"start_time"`
	EndTime       *string  `json:"end_time"`
	CheckInterval int      `json:"check_interval"`
	Times         []string `json:"times"`
}

type URLs struct {
	Default string `json:"default"`
}

type Settings struct {
	Headless         bool   `json:"headless"`
	StopAfterSuccess bool   `json:"stop_after_success"`
	SkipCheck        bool   `json:"skip_check"`
	Discovery        string `json:"discovery,omitempty"`
	LinkPattern      string `json:"link_pattern,omitempty"`
}

const (
	DiscoveryBrowser = "browser"
	DiscoveryHTTP    = "http"
)

type Document struct {
	User     User     `json:"user"`
	Schedule Schedule `json:"schedule"`
	URLs     URLs     `json:"urls"`
	Settings Settings `json:"settings"`
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// Default is the document written when no config file exists yet.
func Default() Document {
	return Document{
		Schedule: Schedule{
			DayOfWeek:     intPtr(0),
			StartTime:     strPtr("09:30"),
			EndTime:       strPtr("10:00"),
			CheckInterval: 10,
			Times:         []string{"10:00", "12:00", "14:00", "16:00", "18:00"},
		},
		URLs: URLs{Default: "https://uwm.edu/food-pantry/"},
		Settings: Settings{
			StopAfterSuccess: true,
			Discovery:        DiscoveryBrowser,
			LinkPattern:      "signupgenius.com",
		},
	}
}
