package automation

// FieldKind is the storage type of a table field.
type FieldKind string

const (
	KindText       FieldKind = "text"
	KindNumber     FieldKind = "number"
	KindBool       FieldKind = "bool"
	KindDate       FieldKind = "date"
	KindLink       FieldKind = "link"
	KindAttachment FieldKind = "attachment"
)

// Schema is the fixed set of fields of one table. LinkTargets names the
// table a link field points to.
type Schema struct {
	Table       Table
	Fields      map[string]FieldKind
	LinkTargets map[string]Table
}

func (s Schema) Kind(field string) (FieldKind, bool) {
	k, ok := s.Fields[field]
	return k, ok
}

// Schemas indexes table schemas by table.
type Schemas map[Table]Schema

func (s Schemas) Has(table Table, field string) bool {
	schema, ok := s[table]
	if !ok {
		return false
	}
	_, ok = schema.Fields[field]
	return ok
}

// DefaultSchemas describes the CRM base the engine was built for.
func DefaultSchemas() Schemas {
	return Schemas{
		TableLead: {
			Table: TableLead,
			Fields: map[string]FieldKind{
				"ID":           KindText,
				"Nome":         KindText,
				"Telefono":     KindText,
				"Email":        KindText,
				"Indirizzo":    KindText,
				"CAP":          KindNumber,
				"Città":        KindText,
				"Stato":        KindText,
				"Esigenza":     KindText,
				"Provenienza":  KindText,
				"Note":         KindText,
				"Data":         KindDate,
				"Allegati":     KindAttachment,
				"Avatar":       KindText,
				"Assegnatario": KindLink,
				"Referenza":    KindLink,
				"Attività":     KindLink,
				"Orders":       KindLink,
			},
			LinkTargets: map[string]Table{
				"Assegnatario": TableUser,
				"Referenza":    TableLead,
				"Attività":     TableActivity,
				"Orders":       TableOrder,
			},
		},
		TableActivity: {
			Table: TableActivity,
			Fields: map[string]FieldKind{
				"ID":                   KindText,
				"Titolo":               KindText,
				"Tipo":                 KindText,
				"Stato":                KindText,
				"Data":                 KindDate,
				"Durata stimata":       KindNumber,
				"Obiettivo":            KindText,
				"Priorità":             KindText,
				"Esito":                KindText,
				"Note":                 KindText,
				"Prossima azione":      KindText,
				"Data prossima azione": KindDate,
				"Allegati":             KindAttachment,
				"ID Lead":              KindLink,
				"Assegnatario":         KindLink,
			},
			LinkTargets: map[string]Table{
				"ID Lead":      TableLead,
				"Assegnatario": TableUser,
			},
		},
		TableOrder: {
			Table: TableOrder,
			Fields: map[string]FieldKind{
				"ID_Ordine":          KindText,
				"Data_Ordine":        KindDate,
				"Stato_Ordine":       KindText,
				"Stato_Pagamento":    KindText,
				"Modalita_Pagamento": KindText,
				"Totale_Lordo":       KindNumber,
				"Totale_Sconto":      KindNumber,
				"Totale_Netto":       KindNumber,
				"Totale_IVA":         KindNumber,
				"Totale_Finale":      KindNumber,
				"Note_Cliente":       KindText,
				"Note_Interne":       KindText,
				"Indirizzo_Consegna": KindText,
				"ID_Lead":            KindLink,
				"ID_Venditore":       KindLink,
			},
			LinkTargets: map[string]Table{
				"ID_Lead":      TableLead,
				"ID_Venditore": TableUser,
			},
		},
		TableUser: {
			Table: TableUser,
			Fields: map[string]FieldKind{
				"Nome":     KindText,
				"Email":    KindText,
				"Ruolo":    KindText,
				"Attivo":   KindBool,
				"Telefono": KindText,
				"Avatar":   KindText,
				"Lead":     KindLink,
				"Activity": KindLink,
				"Orders":   KindLink,
			},
			LinkTargets: map[string]Table{
				"Lead":     TableLead,
				"Activity": TableActivity,
				"Orders":   TableOrder,
			},
		},
		TableProducts: {
			Table: TableProducts,
			Fields: map[string]FieldKind{
				"Codice_Matrice":         KindText,
				"Nome_Prodotto":          KindText,
				"Descrizione":            KindText,
				"Categoria":              KindText,
				"Prezzo_Listino_Attuale": KindNumber,
				"Costo_Attuale":          KindNumber,
				"Attivo":                 KindBool,
				"In_Evidenza":            KindBool,
				"Foto_Prodotto":          KindAttachment,
			},
		},
	}
}
