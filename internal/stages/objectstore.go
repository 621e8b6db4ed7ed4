package stages

import (
	"context"
	"log"

	"datapipe/internal/config"
	"datapipe/internal/datasource/httpds"
	"datapipe/internal/metrics"
	"datapipe/internal/objectstore"

	"github.com/zeebo/xxh3"
)

// Upload ensures the employee bucket exists, uploads the local sample CSV as
// employee_data.csv and lists the bucket.
func Upload(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Require(config.SectionObjectStore, config.SectionRuntime); err != nil {
		return err
	}
	store, err := rustfsStore(ctx, cfg)
	if err != nil {
		return err
	}
	bucket := cfg.ObjectStore.Bucket

	if _, err := store.CreateBucket(ctx, bucket); err != nil {
		return err
	}
	if err := store.UploadFile(ctx, bucket, EmployeeObjectKey, cfg.Paths.SampleData); err != nil {
		return err
	}
	metrics.RecordObjects(cfg.Job, UploadToObjectStore, 1)

	keys, err := store.List(ctx, bucket)
	if err != nil {
		return err
	}
	log.Printf("%s: bucket %s holds %d object(s)", UploadToObjectStore, bucket, len(keys))
	for _, k := range keys {
		log.Printf("  - %s", k)
	}
	return nil
}

// FetchAPI GETs the public API, pretty-prints the JSON body and stores it
// under a timestamped key in the source bucket.
func FetchAPI(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Require(config.SectionSource, config.SectionHTTP, config.SectionRuntime); err != nil {
		return err
	}

	client := httpds.NewClient(httpds.Config{Timeout: cfg.HTTP.Timeout})
	raw, err := client.FetchJSON(ctx, cfg.HTTP.PokeAPIURL)
	if err != nil {
		return err
	}
	body, err := httpds.Pretty(raw)
	if err != nil {
		return err
	}

	store, err := sourceStore(ctx, cfg)
	if err != nil {
		return err
	}
	key := objectstore.TimestampKey(cfg.APIPrefix(), now(), APIPayloadSuffix)
	if err := store.Upload(ctx, cfg.Source.Bucket, key, body, "application/json"); err != nil {
		return err
	}
	metrics.RecordObjects(cfg.Job, FetchAPIToObjectStore, 1)
	log.Printf("%s: stored s3://%s/%s (%d bytes, xxh3=%016x)",
		FetchAPIToObjectStore, cfg.Source.Bucket, key, len(body), xxh3.Hash(body))
	return nil
}
