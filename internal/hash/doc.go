// Package hash provides CRC32-Castagnoli, the checksum of dataset headers,
// directories and column chunks, and of objects uploaded to S3.
//
//	sum := hash.CRC32C(data)
package hash
