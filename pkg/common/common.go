package common

// FileCategory is the processing category assigned to an ingested file.
type FileCategory string

const (
	CategoryPDF         FileCategory = "pdf"
	CategoryText        FileCategory = "text"
	CategoryDOCX        FileCategory = "docx"
	CategoryCSV         FileCategory = "csv"
	CategoryImage       FileCategory = "image"
	CategoryUnsupported FileCategory = "unsupported"
)

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntityPerson        EntityType = "PERSON"
	EntityOrganization  EntityType = "ORGANIZATION"
	EntityLocation      EntityType = "LOCATION"
	EntityProduct       EntityType = "PRODUCT"
	EntityTechnology    EntityType = "TECHNOLOGY"
	EntityEvent         EntityType = "EVENT"
	EntityConcept       EntityType = "CONCEPT"
	EntityTime          EntityType = "TIME"
	EntityNumber        EntityType = "NUMBER"
	EntityMiscellaneous EntityType = "MISCELLANEOUS"
)

// EntityTypes lists every valid entity type, in the order offered to
// the extraction model.
var EntityTypes = []EntityType{
	EntityPerson,
	EntityOrganization,
	EntityLocation,
	EntityProduct,
	EntityTechnology,
	EntityEvent,
	EntityConcept,
	EntityTime,
	EntityNumber,
	EntityMiscellaneous,
}

// ValidEntityType reports whether t is one of the known entity types.
func ValidEntityType(t string) bool {
	for _, known := range EntityTypes {
		if string(known) == t {
			return true
		}
	}
	return false
}

// Document represents one ingested unit (a file). It is created when
// ingestion starts and is immutable afterwards; chunks reference it by
// FileID.
type Document struct {
	FileID     string       `json:"file_id"`
	FolderID   string       `json:"folder_id,omitempty"`
	OwnerID    string       `json:"owner_id"`
	SourceName string       `json:"source_name"`
	Category   FileCategory `json:"category"`
}

// Chunk is a bounded text span derived from a Document. A chunk belongs
// to exactly one Document and is deleted with it.
type Chunk struct {
	ID       string `json:"id"`
	FileID   string `json:"file_id"`
	FolderID string `json:"folder_id,omitempty"`
	ChunkNo  int    `json:"chunk_no"`
	Page     int    `json:"page,omitempty"`
	Source   string `json:"source"`
	Text     string `json:"text"`
}

// Entity is a canonical named concept shared across documents. Name is
// the unique key (case-insensitive canonical form). Confidence is in
// [0,1] and may be refined on repeated mention.
type Entity struct {
	Name       string            `json:"name"`
	Type       EntityType        `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Confidence float64           `json:"confidence"`
}

// Relation is a directed, confidence-scored edge between two entities.
// Both endpoints must exist as validated entities.
type Relation struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Context    string  `json:"context"`
	Confidence float64 `json:"confidence"`
	ChunkNo    int     `json:"chunk_no"`
}

// Mention links a chunk to an entity it references. An entity with no
// remaining mentions is orphaned and eligible for cleanup.
type Mention struct {
	ChunkID    string `json:"chunk_id"`
	EntityName string `json:"entity_name"`
}

// Citation records the retrieval provenance of an answer. One citation
// is emitted per retrieved chunk, whether or not its text appears
// verbatim in the answer.
type Citation struct {
	FileID  string `json:"file_id"`
	ChunkNo int    `json:"chunk_no"`
	Page    int    `json:"page,omitempty"`
	Source  string `json:"source"`
}

// ScopeLevel narrows a query to the whole drive, one folder, or one file.
type ScopeLevel string

const (
	ScopeDrive  ScopeLevel = "drive"
	ScopeFolder ScopeLevel = "folder"
	ScopeFile   ScopeLevel = "file"
)

// Scope identifies the retrieval boundary of a query.
type Scope struct {
	Level    ScopeLevel `json:"level"`
	OwnerID  string     `json:"owner_id"`
	FolderID string     `json:"folder_id,omitempty"`
	FileID   string     `json:"file_id,omitempty"`
}

// ClampConfidence forces v into [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
