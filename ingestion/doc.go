// Package ingestion validates document ingestion payloads and turns them into
// registry registration parameters.
//
// The ingestion pipeline extracts asset attributes from a reserve report and
// emits a JSON payload:
//
//	{
//	  "asset_code": "AU-KIBALI",
//	  "name": "Kibali Gold Reserve",
//	  "standard": "NI43-101",
//	  "jurisdiction": "CD",
//	  "value_usd": "6800000000.00",
//	  "resource_quantity": 1250000,
//	  "in_situ_quantity": 980000,
//	  "document_hash": "96e2e35d...",
//	  "holder": "0x3000000000000000000000000000000000000003",
//	  "effective_date": "2024-06-30"
//	}
//
// Values are decimal amounts converted to base units with 18 fractional
// digits; the registry's asset code is keccak256 of the human-readable code.
// Fingerprint computes the SHA-256 document hash stored on the record.
package ingestion
