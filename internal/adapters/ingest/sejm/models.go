package sejm

// Proceeding is one sitting (posiedzenie) as listed under /sejm/term{N}/proceedings
type Proceeding struct {
	Number  int      `json:"number"`
	Title   string   `json:"title"`
	Dates   []string `json:"dates"`
	Current bool     `json:"current"`
}

// TranscriptEntry is one row of a sitting day's transcript list
type TranscriptEntry struct {
	Num           int    `json:"num"`
	Name          string `json:"name"`
	Function      string `json:"function"`
	MemberID      int    `json:"memberID"`
	StartDateTime string `json:"startDateTime"`
	EndDateTime   string `json:"endDateTime"`
	Unspoken      bool   `json:"unspoken"`
	Rapporteur    bool   `json:"rapporteur"`
	Secretary     bool   `json:"secretary"`
}

// Procedural reports whether the entry is chair housekeeping rather than a speech
func (e TranscriptEntry) Procedural() bool { return e.Num == 0 && e.MemberID <= 0 }

// Member is one MP as listed under /sejm/term{N}/MP
type Member struct {
	ID             int    `json:"id"`
	FirstName      string `json:"firstName"`
	SecondName     string `json:"secondName"`
	LastName       string `json:"lastName"`
	Club           string `json:"club"`
	DistrictName   string `json:"districtName"`
	DistrictNum    int    `json:"districtNum"`
	Voivodeship    string `json:"voivodeship"`
	Profession     string `json:"profession"`
	EducationLevel string `json:"educationLevel"`
	Email          string `json:"email"`
	Active         bool   `json:"active"`
}
