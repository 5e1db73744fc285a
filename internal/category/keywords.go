package category

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zombor/receipt-interpreter/internal/extract"
)

// defaultKeywords is the built-in multi-language table (Italian, French,
// German, Spanish and English shop names and trade words).
var defaultKeywords = map[string][]string{
	Food: {
		"RISTORANTE", "TRATTORIA", "OSTERIA", "PIZZERIA", "GELATERIA", "PASTICCERIA", "PANIFICIO",
		"CAFFETTERIA", "CAFFE", "ROSTICCERIA", "RESTAURANT", "BRASSERIE", "BOULANGERIE", "TRAITEUR",
		"GASTHAUS", "BACKEREI", "IMBISS", "RESTAURANTE", "CAFETERIA", "TABERNA", "PANADERIA",
		"BURGER KING", "MCDONALD", "KEBAB", "SUSHI", "BISTRO",
	},
	Supermarket: {
		"SUPERMERCATO", "IPERMERCATO", "MINIMARKET", "ESSELUNGA", "CONAD", "COOP", "CARREFOUR",
		"EUROSPIN", "DESPAR", "INTERSPAR", "PENNY MARKET", "LIDL", "ALDI", "CRAI", "SIGMA",
		"SUPERMARCHE", "INTERMARCHE", "LECLERC", "MONOPRIX", "AUCHAN", "SUPERMARKT", "EDEKA", "REWE",
		"NETTO", "SUPERMERCADO", "MERCADONA", "EROSKI", "HIPERCOR",
	},
	Fuel: {
		"CARBURANTE", "BENZINA", "GASOLIO", "STAZIONE DI SERVIZIO", "DISTRIBUTORE", "ENI", "AGIP",
		"ESSO", "TAMOIL", "Q8", "SHELL", "TOTALENERGIES", "CARBURANT", "GAZOLE", "SANS PLOMB",
		"STATION SERVICE", "TANKSTELLE", "KRAFTSTOFF", "ARAL", "GASOLINERA", "REPSOL", "CEPSA",
		"GALP", "DIESEL", "UNLEADED",
	},
	Pharmacy: {
		"FARMACIA", "PARAFARMACIA", "PHARMACIE", "PARAPHARMACIE", "APOTHEKE", "PHARMACY",
		"MEDICINALI", "FARMACO",
	},
	Chandlery: {
		"SHIP CHANDLER", "SHIPCHANDLER", "CHANDLERY", "FORNITURE NAVALI", "ARTICOLI NAUTICI", "NAUTICA",
		"ACCASTILLAGE", "SHIPSHANDEL", "BOOTSZUBEHOR", "EFECTOS NAVALES", "VELERIA", "MARINE SUPPLY",
		"YACHT SUPPLY", "CANTIERE NAVALE",
	},
	Parking: {
		"PARCHEGGIO", "PARCHIMETRO", "AUTORIMESSA", "SOSTA", "PARKING", "PARCMETRE", "STATIONNEMENT",
		"PARKHAUS", "PARKSCHEIN", "PARKGEBUHR", "APARCAMIENTO", "ESTACIONAMIENTO", "GARAGE",
	},
	TenderFuel: {
		"DISTRIBUTORE MARINA", "CARBURANTE NAUTICO", "MISCELA", "BUNKERAGGIO", "POMPA PORTO",
		"AVITAILLEMENT", "STATION PORT", "BOOTSTANKSTELLE", "PUERTO DEPORTIVO", "MARINA FUEL",
		"FUEL DOCK", "TENDER",
	},
	Fly: {
		"AEROPORTO", "AIRPORT", "AEROPORT", "FLUGHAFEN", "AEROPUERTO", "CARTA D'IMBARCO",
		"BOARDING PASS", "CARTE D'EMBARQUEMENT", "RYANAIR", "EASYJET", "ITA AIRWAYS", "ALITALIA",
		"AIR FRANCE", "LUFTHANSA", "VUELING", "IBERIA", "VOLOTEA", "WIZZ AIR", "FLIGHT", "VOLO",
	},
	Crew: {
		"CREW", "EQUIPAGGIO", "MARINAIO", "EQUIPAGE", "MATELOT", "BESATZUNG", "MATROSE",
		"TRIPULACION", "MARINERO", "DIVISE", "UNIFORM",
	},
}

// KeywordStore is the read-only static keyword dictionary. Keywords are kept
// folded (uppercase, no accents) and deduplicated in their original order.
type KeywordStore struct {
	categories []string
	keywords   map[string][]string
}

// DefaultKeywordStore returns the built-in keyword table.
func DefaultKeywordStore() *KeywordStore {
	store, err := NewKeywordStore(defaultKeywords)
	if err != nil {
		panic(fmt.Sprintf("built-in keyword table is invalid: %v", err))
	}
	return store
}

// NewKeywordStore builds a store from a category -> keywords table. Every
// category must belong to the vocabulary.
func NewKeywordStore(table map[string][]string) (*KeywordStore, error) {
	s := &KeywordStore{keywords: make(map[string][]string, len(table))}
	for name, words := range table {
		canonical, ok := Canonical(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, name)
		}

		folded := s.keywords[canonical]
		seen := make(map[string]struct{}, len(folded)+len(words))
		for _, w := range folded {
			seen[w] = struct{}{}
		}
		for _, w := range words {
			w = strings.TrimSpace(extract.Fold(w))
			if w == "" {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			folded = append(folded, w)
		}
		s.keywords[canonical] = folded
	}

	for name := range s.keywords {
		s.categories = append(s.categories, name)
	}
	slices.Sort(s.categories)
	return s, nil
}

// keywordFile is the YAML layout accepted by LoadKeywordStore.
type keywordFile struct {
	Categories []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"categories"`
}

// LoadKeywordStore reads a YAML keyword table of the form
//
//	categories:
//	  - name: Fuel
//	    keywords: [ENI, Q8]
func LoadKeywordStore(path string) (*KeywordStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyword file: %w", err)
	}

	var file keywordFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing keyword file: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("keyword file %s has no categories", path)
	}

	table := make(map[string][]string, len(file.Categories))
	for _, c := range file.Categories {
		table[c.Name] = append(table[c.Name], c.Keywords...)
	}
	return NewKeywordStore(table)
}

// Categories returns the categories that have keywords, sorted by name.
func (s *KeywordStore) Categories() []string {
	return slices.Clone(s.categories)
}

// Keywords returns the folded keywords of a category.
func (s *KeywordStore) Keywords(category string) []string {
	return slices.Clone(s.keywords[category])
}
