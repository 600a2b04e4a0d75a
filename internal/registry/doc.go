// Package registry assembles the SQL Registry: a mapping from canonical
// sql_id (oracle.cdc.<table_lower>.<range>) to the rendered window query and
// its metadata.
//
// A registry built from several specs is their union; two specs producing the
// same sql_id is a ConflictError. Marshal and Parse are inverse: parsing an
// emitted registry and marshaling it again yields the same bytes.
package registry
