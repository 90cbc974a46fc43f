package sync

import (
	"time"

	"gys/internal/models"
	"gys/internal/parser"
)

// recordFields builds the Firestore field map for one event. Only fields
// the parsers actually found are included, so merge writes preserve
// stored values and fresh records leave unprocessed fields absent, which
// is the "never populated" state the fee alerts depend on.
func recordFields(ev *models.CalendarEvent, abbrevs map[string]string, now time.Time) map[string]interface{} {
	title := parser.ParseTitle(ev.Summary, abbrevs)
	desc := parser.ParseDescription(ev.Description)

	fields := map[string]interface{}{
		"id":        ev.ID,
		"ad":        title.Ad,
		"tarih":     ev.Start.Format("2006-01-02"),
		"saat":      ev.Start.Format("15:04"),
		"updatedAt": now,
	}

	if title.MakyajPersonel != "" {
		fields["makyajPersonel"] = title.MakyajPersonel
	}
	if title.SacPersonel != "" {
		fields["sacPersonel"] = title.SacPersonel
	}

	setString(fields, "kinaGunu", desc.KinaGunu)
	setString(fields, "telNo", desc.TelNo)
	setString(fields, "esiTelNo", desc.EsiTelNo)
	setString(fields, "instagram", desc.Instagram)
	setString(fields, "fotografci", desc.Fotografci)
	setString(fields, "modaevi", desc.Modaevi)
	setString(fields, "anlasildigiTarih", desc.AnlasildigiTarih)
	setString(fields, "gelinNotu", desc.GelinNotu)
	setString(fields, "dekontGorseli", desc.DekontGorseli)

	setInt(fields, "anlasilanUcret", desc.AnlasilanUcret)
	setInt(fields, "kapora", desc.Kapora)
	setInt(fields, "kalan", desc.Kalan)

	setBool(fields, "bilgiGonderildi", desc.BilgiGonderildi)
	setBool(fields, "ucretKaydedildi", desc.UcretKaydedildi)
	setBool(fields, "malzemeGonderildi", desc.MalzemeGonderildi)
	setBool(fields, "paylasimIzni", desc.PaylasimIzni)
	setBool(fields, "yorumIstendi", desc.YorumIstendi)
	setBool(fields, "yorumAlindi", desc.YorumAlindi)

	return fields
}

func setString(fields map[string]interface{}, key, val string) {
	if val != "" {
		fields[key] = val
	}
}

func setInt(fields map[string]interface{}, key string, val *int) {
	if val != nil {
		fields[key] = *val
	}
}

func setBool(fields map[string]interface{}, key string, val *bool) {
	if val != nil {
		fields[key] = *val
	}
}
