package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/hupe1980/radbase/blobstore"
)

// ErrConcurrentModification is returned when another writer committed the
// same dataset version first.
var ErrConcurrentModification = errors.New("s3: concurrent modification detected")

// versionSep separates a dataset name from its version in object keys.
const versionSep = "@v"

// DDBClient is the subset of the DynamoDB API used by CatalogStore.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Version is one committed version of a published dataset.
type Version struct {
	Number    uint64
	Key       string
	Size      int64
	Checksum  string
	Committed time.Time
}

// CatalogStore implements blobstore.BlobStore on top of a Store, recording
// each Put as a new immutable version in a DynamoDB table.
//
// Table schema:
//   - Partition key: dataset (string), the blob name
//   - Sort key: version (number), monotonically increasing per dataset
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name radbase-catalog \
//	  --attribute-definitions AttributeName=dataset,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=dataset,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CatalogStore struct {
	store     *Store
	ddb       DDBClient
	tableName string
	now       func() time.Time
}

// NewCatalogStore creates a catalog over store backed by tableName.
func NewCatalogStore(store *Store, ddb DDBClient, tableName string) *CatalogStore {
	return &CatalogStore{
		store:     store,
		ddb:       ddb,
		tableName: tableName,
		now:       time.Now,
	}
}

// versionKey names the object of one upload. The random suffix keeps racing
// writers of the same version from sharing an object.
func versionKey(name string, v uint64) string {
	return fmt.Sprintf("%s%s%06d-%s", name, versionSep, v, uuid.NewString())
}

// Open opens the latest committed version of name.
func (s *CatalogStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	versions, err := s.query(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, blobstore.ErrNotFound
	}
	return s.store.Open(ctx, versions[0].Key)
}

// Put uploads data as the next version of name and commits it.
//
// The object is uploaded first and committed with a conditional write. If
// another writer committed the same version in between, the upload is
// removed and ErrConcurrentModification is returned.
func (s *CatalogStore) Put(ctx context.Context, name string, data []byte) error {
	latest, err := s.query(ctx, name, 1)
	if err != nil {
		return err
	}

	var next uint64 = 1
	if len(latest) > 0 {
		next = latest[0].Number + 1
	}

	key := versionKey(name, next)
	if err := s.store.Put(ctx, key, data); err != nil {
		return err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"dataset":   &types.AttributeValueMemberS{Value: name},
			"version":   &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"key":       &types.AttributeValueMemberS{Value: key},
			"size":      &types.AttributeValueMemberN{Value: strconv.Itoa(len(data))},
			"checksum":  &types.AttributeValueMemberS{Value: computeCRC32C(data)},
			"committed": &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		_ = s.store.Delete(ctx, key)

		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("s3: commit %s version %d: %w", name, next, err)
	}

	return nil
}

// Create buffers the blob and publishes it with Put on Close.
func (s *CatalogStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return &catalogWritableBlob{ctx: ctx, store: s, name: name}, nil
}

// Delete removes every version of name from the catalog and the bucket.
func (s *CatalogStore) Delete(ctx context.Context, name string) error {
	versions, err := s.query(ctx, name, 0)
	if err != nil {
		return err
	}

	for _, v := range versions {
		if _, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"dataset": &types.AttributeValueMemberS{Value: name},
				"version": &types.AttributeValueMemberN{Value: strconv.FormatUint(v.Number, 10)},
			},
		}); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, v.Key); err != nil {
			return err
		}
	}
	return nil
}

// List returns the dataset names with the given prefix that have at least
// one stored version.
func (s *CatalogStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(keys))
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		i := strings.LastIndex(k, versionSep)
		if i < 0 {
			continue
		}
		name := k[:i]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

// Versions returns all committed versions of name, newest first.
func (s *CatalogStore) Versions(ctx context.Context, name string) ([]Version, error) {
	return s.query(ctx, name, 0)
}

// query returns up to limit versions of name, newest first. Zero means all.
func (s *CatalogStore) query(ctx context.Context, name string, limit int32) ([]Version, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("dataset = :name"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: name},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	var versions []Version
	for {
		resp, err := s.ddb.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("s3: query catalog: %w", err)
		}

		for _, item := range resp.Items {
			v, err := parseVersion(item)
			if err != nil {
				return nil, err
			}
			versions = append(versions, v)
		}

		if limit > 0 || len(resp.LastEvaluatedKey) == 0 {
			return versions, nil
		}
		input.ExclusiveStartKey = resp.LastEvaluatedKey
	}
}

func parseVersion(item map[string]types.AttributeValue) (Version, error) {
	var v Version

	num, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return v, errors.New("s3: catalog item without version")
	}
	n, err := strconv.ParseUint(num.Value, 10, 64)
	if err != nil {
		return v, fmt.Errorf("s3: catalog version: %w", err)
	}
	v.Number = n

	key, ok := item["key"].(*types.AttributeValueMemberS)
	if !ok {
		return v, errors.New("s3: catalog item without key")
	}
	v.Key = key.Value

	if size, ok := item["size"].(*types.AttributeValueMemberN); ok {
		v.Size, _ = strconv.ParseInt(size.Value, 10, 64)
	}
	if sum, ok := item["checksum"].(*types.AttributeValueMemberS); ok {
		v.Checksum = sum.Value
	}
	if ts, ok := item["committed"].(*types.AttributeValueMemberS); ok {
		v.Committed, _ = time.Parse(time.RFC3339Nano, ts.Value)
	}

	return v, nil
}

type catalogWritableBlob struct {
	ctx    context.Context //nolint:containedctx // publish happens on Close
	store  *CatalogStore
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *catalogWritableBlob) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

func (w *catalogWritableBlob) Close() error {
	if w.closed {
		return io.ErrClosedPipe
	}
	w.closed = true
	return w.store.Put(w.ctx, w.name, w.buf.Bytes())
}

// Abort discards the buffered data. No version is committed.
func (w *catalogWritableBlob) Abort() error {
	w.closed = true
	w.buf.Reset()
	return nil
}

func (w *catalogWritableBlob) Sync() error {
	return nil
}
