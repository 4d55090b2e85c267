// Package stage converts raw extracted elements into rows that conform to the
// destination element table: it resolves the enhanced element id, merges
// metadata into the top level, drops unsupported fields, and normalizes
// column values into storage-safe scalars.
package stage

// RecordIDLabel is the record-linkage column linking every staged element
// back to the source file it was extracted from. The reconciling uploader
// deletes by this column before inserting.
const RecordIDLabel = "record_id"

// Columns is the fixed allow-list of destination table columns. Any element
// field outside this set is dropped during staging; this is the schema
// contract of the element table, loaded once and never mutated.
var Columns = []string{
	"id",
	"element_id",
	"text",
	"embeddings",
	"type",
	"system",
	"layout_width",
	"layout_height",
	"points",
	"url",
	"version",
	"date_created",
	"date_modified",
	"date_processed",
	"permissions_data",
	"record_locator",
	"category_depth",
	"parent_id",
	"attached_filename",
	"filetype",
	"last_modified",
	"file_directory",
	"filename",
	"languages",
	"page_number",
	"links",
	"page_name",
	"link_urls",
	"link_texts",
	"sent_from",
	"sent_to",
	"subject",
	"section",
	"header_footer_type",
	"emphasized_text_contents",
	"emphasized_text_tags",
	"text_as_html",
	"regex_metadata",
	"detection_class_prob",
}

var columnSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Columns))
	for _, c := range Columns {
		m[c] = struct{}{}
	}
	return m
}()

// Supported reports whether name is part of the destination schema contract.
func Supported(name string) bool {
	_, ok := columnSet[name]
	return ok
}
