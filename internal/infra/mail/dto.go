package mail

type DealWonData struct {
	LeadName  string
	Company   string
	Value     string
	FromStage string
}

type ImportSummaryData struct {
	Imported int
	Total    int
	Failed   bool
	Error    string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	dialer Dialer
}
