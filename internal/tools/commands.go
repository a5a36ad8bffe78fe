package tools

// Command is one decoded tool invocation. The set of implementations is
// closed: callers switch over the concrete types.
type Command interface {
	ToolName() string
	isCommand()
}

// Tool names advertised to the generative backend.
const (
	NameCheckAvailability = "check_doctor_availability"
	NameBookAppointment   = "book_appointment"
	NameAppointmentStats  = "get_appointment_stats"
	NameListDoctors       = "list_doctors"
	NameNotifyDoctor      = "send_doctor_notification"
)

// CheckAvailability asks for free slots of a doctor on a date.
type CheckAvailability struct {
	DoctorName     string `arg:"doctor_name,required" desc:"Name of the doctor, e.g. 'Dr. Ahuja' or 'Sarah Smith'"`
	Date           string `arg:"date,required" desc:"Date to check in YYYY-MM-DD format"`
	TimePreference string `arg:"time_preference" desc:"Optional preference such as 'morning', 'afternoon' or 'evening'"`
}

// BookAppointment books a slot for a patient.
type BookAppointment struct {
	DoctorID        int64  `arg:"doctor_id,required" desc:"Numeric id of the doctor as returned by list_doctors or check_doctor_availability"`
	PatientName     string `arg:"patient_name,required" desc:"Full name of the patient"`
	PatientEmail    string `arg:"patient_email,required" desc:"Email address for the confirmation"`
	AppointmentTime string `arg:"appointment_time,required" desc:"Start time in ISO format YYYY-MM-DDTHH:MM:SS"`
	Reason          string `arg:"reason" desc:"Reason for the visit"`
}

// AppointmentStats summarizes a doctor's appointments over a window.
type AppointmentStats struct {
	DoctorName string `arg:"doctor_name,required" desc:"Name of the doctor"`
	QueryType  string `arg:"query_type,required" desc:"Time window to summarize" enum:"today,tomorrow,yesterday,this_week,daily,weekly"`
	FilterBy   string `arg:"filter_by" desc:"Optional text matched against the visit reason, e.g. 'fever'"`
}

// ListDoctors lists doctors, optionally by specialization.
type ListDoctors struct {
	Specialization string `arg:"specialization" desc:"Specialization or body part, e.g. 'Cardiologist', 'heart', 'teeth'"`
}

// NotifyDoctor sends a free-form message to a doctor's channel.
type NotifyDoctor struct {
	DoctorName string `arg:"doctor_name,required" desc:"Name of the doctor to notify"`
	Message    string `arg:"message,required" desc:"Message to deliver; the first line is used as the headline"`
}

func (CheckAvailability) ToolName() string { return NameCheckAvailability }
func (BookAppointment) ToolName() string   { return NameBookAppointment }
func (AppointmentStats) ToolName() string  { return NameAppointmentStats }
func (ListDoctors) ToolName() string       { return NameListDoctors }
func (NotifyDoctor) ToolName() string      { return NameNotifyDoctor }

func (CheckAvailability) isCommand() {}
func (BookAppointment) isCommand()   {}
func (AppointmentStats) isCommand()  {}
func (ListDoctors) isCommand()       {}
func (NotifyDoctor) isCommand()      {}

var descriptions = map[string]string{
	NameCheckAvailability: "Check available appointment slots for a doctor on a specific date.",
	NameBookAppointment:   "Book an appointment with a doctor. Also adds a calendar event, emails the patient and notifies the doctor.",
	NameAppointmentStats:  "Get appointment statistics for a doctor over a time window, optionally filtered by visit reason.",
	NameListDoctors:       "List doctors in the clinic, optionally filtered by specialization.",
	NameNotifyDoctor:      "Send a notification message to a doctor.",
}

// catalog fixes the advertised order.
var catalog = []Command{
	CheckAvailability{},
	BookAppointment{},
	AppointmentStats{},
	ListDoctors{},
	NotifyDoctor{},
}
