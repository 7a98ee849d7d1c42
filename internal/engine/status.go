package engine

import (
	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Status message keys. The English text doubles as the key.
const (
	msgNoLocation   = "Could not get current location."
	msgNoPermission = "Location permission not granted."
	msgNoGeofences  = "No geofences saved."
	msgInside       = "You are inside geofence at Lat %.4f, Lon %.4f (radius %sm)"
	msgOutside      = "You are not inside any geofence."
	msgPinned       = "Pinned your current location."
	msgCheckFailed  = "Error checking geofence: %s"
)

var translations = map[language.Tag]map[string]string{
	language.German: {
		msgNoLocation:   "Aktueller Standort konnte nicht ermittelt werden.",
		msgNoPermission: "Standortberechtigung nicht erteilt.",
		msgNoGeofences:  "Keine Geofences gespeichert.",
		msgInside:       "Sie befinden sich im Geofence bei Breite %.4f, Länge %.4f (Radius %sm)",
		msgOutside:      "Sie befinden sich in keinem Geofence.",
		msgPinned:       "Aktueller Standort markiert.",
		msgCheckFailed:  "Fehler bei der Geofence-Prüfung: %s",
	},
}

var statusCatalog = mustCatalog()

func newCatalog() (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range []string{
		msgNoLocation, msgNoPermission, msgNoGeofences, msgInside, msgOutside, msgPinned, msgCheckFailed,
	} {
		if err := b.SetString(language.English, key, key); err != nil {
			return nil, eris.Wrapf(err, "engine: catalog %s %q", language.English, key)
		}
	}
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, eris.Wrapf(err, "engine: catalog %s %q", tag, key)
			}
		}
	}
	return b, nil
}

func mustCatalog() *catalog.Builder {
	b, err := newCatalog()
	if err != nil {
		panic(err)
	}
	return b
}

// newPrinter returns a printer for tag backed by the status catalog.
func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(statusCatalog))
}
