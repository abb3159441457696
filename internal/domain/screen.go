package domain

// Screen is one of the mutually exclusive top-level views of a session.
type Screen string

const (
	ScreenHome       Screen = "home"
	ScreenScan       Screen = "scan"
	ScreenDetail     Screen = "detail"
	ScreenInspection Screen = "inspection"
	ScreenResult     Screen = "result"
	ScreenHistory    Screen = "history"
	ScreenProfile    Screen = "profile"
)

var screenElements = map[Screen]string{
	ScreenHome:       "home-screen",
	ScreenScan:       "scan-screen",
	ScreenDetail:     "detail-screen",
	ScreenInspection: "inspection-screen",
	ScreenResult:     "result-screen",
	ScreenHistory:    "history-screen",
	ScreenProfile:    "home-screen", // no profile view yet
}

func (s Screen) IsValid() bool {
	_, ok := screenElements[s]
	return ok
}

// Element is the id of the view that is shown for the screen.
func (s Screen) Element() string {
	return screenElements[s]
}
