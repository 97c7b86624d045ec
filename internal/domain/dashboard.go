package domain

// Traffic light values of the gateway dashboard.
const (
	AmpelRed  = "icon:ball_red"
	AmpelBlue = "icon:ball_blue"
	SoldPhase = "Sold Phase"
)

// GatewayRow is one project line of the GATEWAYDASHBOARD infosystem.
type GatewayRow struct {
	ProjectNumber  string
	ServiceProduct string
	ProjectName    string
	Phase          string
	Gateway        string // current gateway
	GatewayInfo    string
	Ampel          string // traffic light icon
	Customer       string
	Location       string
	Responsible    string // project lead short code
}

// DispatchRow is one upcoming shipment from the DISPATCH infosystem.
type DispatchRow struct {
	Dispatch       string // dispatch date as shown by the ERP
	ProjectNumber  string
	ServiceProduct string
	SystemType     string
	Recipient      string
}

// OpenTask is one active ABAS task of the lead.
type OpenTask struct {
	Number        string
	Title         string
	From          string // confirming person
	ProjectNumber string
	ProjectName   string
	Start         string
	End           string
}

// BookedHours is one time booking of the lead.
type BookedHours struct {
	Date          string
	Hours         float64
	ProjectNumber string
	Description   string
}

// OverbookedProject is a project whose bookings exceed its budget.
type OverbookedProject struct {
	ProjectNumber string
	ProjectName   string
	Percent       float64 // booked hours in percent of budget
	Budget        float64
	Booked        float64
}
