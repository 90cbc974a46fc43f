package models

import "time"

// FeeUnknown marks a fee the calendar author deliberately left blank
// (an uppercase "X" placeholder in the event description). Distinct from
// 0, which means "explicitly zero", and from the field being absent in
// Firestore, which means "never populated".
const FeeUnknown = -1

// Gelin is one booking record, keyed by its Google Calendar event ID.
type Gelin struct {
	ID                string    `firestore:"id" json:"id"`
	Ad                string    `firestore:"ad" json:"ad"`
	Tarih             string    `firestore:"tarih" json:"tarih"` // YYYY-MM-DD
	Saat              string    `firestore:"saat" json:"saat"`   // HH:MM
	AnlasilanUcret    int       `firestore:"anlasilanUcret" json:"anlasilanUcret"`
	Kapora            int       `firestore:"kapora" json:"kapora"`
	Kalan             int       `firestore:"kalan" json:"kalan"`
	MakyajPersonel    string    `firestore:"makyajPersonel" json:"makyajPersonel"`
	SacPersonel       string    `firestore:"sacPersonel" json:"sacPersonel"`
	KinaGunu          string    `firestore:"kinaGunu" json:"kinaGunu"`
	TelNo             string    `firestore:"telNo" json:"telNo"`
	EsiTelNo          string    `firestore:"esiTelNo" json:"esiTelNo"`
	Instagram         string    `firestore:"instagram" json:"instagram"`
	Fotografci        string    `firestore:"fotografci" json:"fotografci"`
	Modaevi           string    `firestore:"modaevi" json:"modaevi"`
	AnlasildigiTarih  string    `firestore:"anlasildigiTarih" json:"anlasildigiTarih"`
	BilgiGonderildi   bool      `firestore:"bilgiGonderildi" json:"bilgiGonderildi"`
	UcretKaydedildi   bool      `firestore:"ucretKaydedildi" json:"ucretKaydedildi"`
	MalzemeGonderildi bool      `firestore:"malzemeGonderildi" json:"malzemeGonderildi"`
	PaylasimIzni      bool      `firestore:"paylasimIzni" json:"paylasimIzni"`
	YorumIstendi      bool      `firestore:"yorumIstendi" json:"yorumIstendi"`
	YorumAlindi       bool      `firestore:"yorumAlindi" json:"yorumAlindi"`
	GelinNotu         string    `firestore:"gelinNotu" json:"gelinNotu"`
	DekontGorseli     string    `firestore:"dekontGorseli" json:"dekontGorseli"`
	UpdatedAt         time.Time `firestore:"updatedAt" json:"updatedAt"`
}
