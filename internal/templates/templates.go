package templates

import (
	"errors"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
)

var ErrTemplateNotFound = errors.New("template not found")

type Category string

const (
	CategoryLoadsheet    Category = "loadsheet"
	CategoryReport       Category = "report"
	CategoryNotification Category = "notification"
	CategorySpecial      Category = "special"
	// CategoryClearance requests travel as pdc and wait for the crew to
	// accept or reject them.
	CategoryClearance Category = "clearance"
)

// Template is a canned company message a dispatcher can send to a flight.
type Template struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Category    Category           `json:"category"`
	Type        domain.MessageType `json:"type"`
	Content     string             `json:"content"`
}

var catalog = []Template{
	{
		ID:          "preliminary-loadsheet",
		Name:        "Preliminary Loadsheet",
		Description: "Preliminary loadsheet with flight data before departure",
		Category:    CategoryLoadsheet,
		Content:     "PRELIMINARY LOADSHEET\nAIRCRAFT: B777-300ER\nPAX: 350\nCARGO: 15000KG\nFUEL: 145000KG\nCAPTAIN: TANAKA\nFO: SUZUKI",
	},
	{
		ID:          "final-loadsheet",
		Name:        "Final Loadsheet",
		Description: "Final loadsheet after engine start",
		Category:    CategoryLoadsheet,
		Content:     "FINAL LOADSHEET\nAIRCRAFT: B777-300ER\nPAX: 348\nCARGO: 15200KG\nFUEL: 144500KG\nZFW: 180000KG\nTOW: 328500KG",
	},
	{
		ID:          "fueling-slip",
		Name:        "Fueling Slip",
		Description: "Fuel dispatch after fueling completion",
		Category:    CategoryReport,
		Content:     "FUELING SLIP\nFUEL LOADED: 144500KG\nFUEL TYPE: JET-A1\nFUELING COMPLETED: 1420Z",
	},
	{
		ID:          "to-report",
		Name:        "TO Report",
		Description: "Take-off report with performance data",
		Category:    CategoryReport,
		Content:     "TO PERFORMANCE REPORT\nRWY: 16R\nV1: 155\nVR: 158\nV2: 163\nFLAPS: 15\nENGINE START: 1456Z",
	},
	{
		ID:          "departure-obt",
		Name:        "Departure OBT Log",
		Description: "Confirms off-block time recording",
		Category:    CategoryReport,
		Content:     "DEPARTURE OBT LOG\nOFF-BLOCK TIME: 1456Z\nCONFIRMED AND RECORDED",
	},
	{
		ID:          "arrival-obt",
		Name:        "Arrival OBT Log",
		Description: "Confirms arrival time logging",
		Category:    CategoryReport,
		Content:     "ARRIVAL OBT LOG\nON-BLOCK TIME: 0834Z\nCONFIRMED AND RECORDED",
	},
	{
		ID:          "la-report",
		Name:        "LA Report",
		Description: "Landing report 25 minutes before arrival",
		Category:    CategoryReport,
		Content:     "LANDING REPORT\nRWY: 34L\nAPPROACH: ILS\nWIND: 280/12\nVISIBILITY: 10KM\nLANDING TIME: 0834Z",
	},
	{
		ID:          "connex-schedule",
		Name:        "CONNEX Schedule",
		Description: "Connecting flight information",
		Category:    CategoryNotification,
		Content:     "CONNEX SCHEDULE\nCONNECTING FLIGHTS AVAILABLE\nCHECK GATE ASSIGNMENTS",
	},
	{
		ID:          "ac-changes",
		Name:        "AC Changes",
		Description: "Potential aircraft change",
		Category:    CategoryNotification,
		Content:     "AIRCRAFT CHANGE NOTIFICATION\nNEW AIRCRAFT: B787-9\nREASON: MAINTENANCE",
	},
	{
		ID:          "crew-schedule",
		Name:        "Crew Schedule",
		Description: "Crew member information for the next flight",
		Category:    CategoryNotification,
		Content:     "CREW SCHEDULE\nCAPTAIN: TANAKA (CONTINUING)\nFO: SUZUKI (CONTINUING)\nFA: YAMADA (CONTINUING)",
	},
	{
		ID:          "next-leg-change",
		Name:        "Next Leg Change",
		Description: "Next leg change",
		Category:    CategoryNotification,
		Content:     "NEXT LEG CHANGE\nNEW ROUTE: RJAA-RJTT\nREASON: WEATHER",
	},
	{
		ID:          "comp-difficulties",
		Name:        "COMP Difficulties",
		Description: "Company operation difficulties",
		Category:    CategoryNotification,
		Content:     "COMPANY DIFFICULTIES\nGROUND DELAY PROGRAM IN EFFECT\nEXPECT 30 MIN DELAY",
	},
	{
		ID:          "slot-notification",
		Name:        "Slot Notification",
		Description: "Slot information overview",
		Category:    CategoryNotification,
		Content:     "SLOT NOTIFICATION\nORIGIN: RJAA\nDESTINATION: RJTT\nEOBT: 1500Z\nCONFIRM DETAILS",
	},
	{
		ID:          "space-launches",
		Name:        "Space Launches",
		Description: "Spacecraft launches within 300 NM",
		Category:    CategorySpecial,
		Content:     "SPACE LAUNCH NOTIFICATION\nLAUNCH SITE: TANEGASHIMA\nTIME: 1600Z\nAVOID AREA: 300NM RADIUS",
	},
	{
		ID:          "natural-disasters",
		Name:        "Natural Disasters",
		Description: "Storms, earthquakes and volcanoes within 300 NM",
		Category:    CategorySpecial,
		Content:     "NATURAL DISASTER ALERT\nTYPHOON APPROACHING\nPOSITION: 35N 140E\nAVOID AREA: 300NM RADIUS",
	},
	{
		ID:          "funny-messages",
		Name:        "Funny Messages",
		Description: "Humorous messages",
		Category:    CategorySpecial,
		Content:     "FUNNY MESSAGE\nWHY DID THE PILOT CROSS THE ROAD?\nTO GET TO THE OTHER SIDE OF THE RUNWAY!",
	},
	{
		ID:          "special-events",
		Name:        "Special Events",
		Description: "Relevant special event notifications",
		Category:    CategorySpecial,
		Content:     "SPECIAL EVENT\nWORLD CUP FINAL TODAY\nEXPECT INCREASED TRAFFIC",
	},
	{
		ID:          "rops-pdc",
		Name:        "Pre-Departure Clearance (PDC)",
		Description: "Request PDC from ROPS station",
		Category:    CategoryClearance,
		Content:     "ROPS PDC REQUEST\nORIGIN: RJAA\nDESTINATION: RJTT\nROUTE: VIA ROUTE A\nREQUESTING CLEARANCE",
	},
	{
		ID:          "rops-cpdlc-logon",
		Name:        "CPDLC Logon",
		Description: "Log onto ROPS station for CPDLC",
		Category:    CategoryClearance,
		Content:     "ROPS CPDLC LOGON\nREQUESTING CPDLC CONNECTION\nCURRENT POSITION: RJAA",
	},
	{
		ID:          "rops-direct",
		Name:        "Direct To Instructions",
		Description: "Request direct routing instructions",
		Category:    CategoryClearance,
		Content:     "ROPS DIRECT REQUEST\nCURRENT POSITION: 35N 140E\nREQUESTING DIRECT TO: RJTT",
	},
	{
		ID:          "rops-level",
		Name:        "Flight Level Request",
		Description: "Request altitude changes",
		Category:    CategoryClearance,
		Content:     "ROPS LEVEL REQUEST\nCURRENT LEVEL: FL350\nREQUESTING: FL370\nREASON: WEATHER",
	},
	{
		ID:          "rops-speed",
		Name:        "Speed Request",
		Description: "Request speed adjustments",
		Category:    CategoryClearance,
		Content:     "ROPS SPEED REQUEST\nCURRENT SPEED: M0.82\nREQUESTING: M0.85\nREASON: TRAFFIC",
	},
	{
		ID:          "rops-oceanic",
		Name:        "Oceanic Clearance",
		Description: "Request oceanic clearance",
		Category:    CategoryClearance,
		Content:     "ROPS OCEANIC CLEARANCE\nROUTE: PACOT 1\nENTRY POINT: NIKKO\nREQUESTING CLEARANCE",
	},
}

var byID = func() map[string]Template {
	m := make(map[string]Template, len(catalog))
	for i := range catalog {
		catalog[i].Type = typeFor(catalog[i].Category)
		m[catalog[i].ID] = catalog[i]
	}
	return m
}()

func typeFor(c Category) domain.MessageType {
	switch c {
	case CategoryLoadsheet:
		return domain.TypeLoadsheet
	case CategoryReport:
		return domain.TypeReport
	case CategoryClearance:
		return domain.TypePDC
	}
	return domain.TypeNotification
}

// All returns the catalog in display order.
func All() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

func ByCategory(c Category) []Template {
	var out []Template
	for _, t := range catalog {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

func Lookup(id string) (Template, error) {
	t, ok := byID[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}
