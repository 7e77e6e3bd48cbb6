package models

// Doctor is a row of the external doctor directory. Display carries the
// name with its specialization suffix, e.g. "dr. Budi, Sp.A".
type Doctor struct {
	Code        string `json:"doctor_code"`
	Name        string `json:"doctor_name"`
	Display     string `json:"doctor_display"`
	HomeAddress string `json:"-"`
	Active      bool   `json:"active"`
}
