// Use: migrate the target database first, then
// go run ./scripts/loaddata.go sqlite file:/tmp/tavsiyece.db 1000

package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tcgun/tavsiyece-sub000/pkg/commands"
	"github.com/tcgun/tavsiyece-sub000/pkg/social"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/mysql"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/postgres"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/sqlcommon"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/sqlite"
)

const (
	recommendationsPerUser = 5
	followsPerUser         = 50
	likesPerUser           = 20
	concurrency            = 20
)

var categories = []string{"Books", "Movies", "Music", "Places", "Food"}

func main() {
	argEngine := os.Args[1]
	argConnectionString := os.Args[2]
	argTotalUsers, err := strconv.Atoi(os.Args[3])
	if err != nil {
		log.Panic(err)
	}

	var ds storage.DocumentStore
	switch argEngine {
	case "sqlite":
		ds, err = sqlite.New(argConnectionString, sqlcommon.NewConfig())
	case "postgres":
		ds, err = postgres.New(argConnectionString, sqlcommon.NewConfig())
	case "mysql":
		ds, err = mysql.New(argConnectionString, sqlcommon.NewConfig())
	default:
		log.Panic("unknown database")
	}
	if err != nil {
		log.Panic(err)
	}
	defer ds.Close()

	ctx := context.Background()
	users := userIDs(argTotalUsers)

	if err := insertUsers(ctx, ds, users); err != nil {
		log.Panic(err)
	}

	recs, err := publish(ctx, ds, users)
	if err != nil {
		log.Panic(err)
	}

	if err := engage(ctx, ds, users, recs); err != nil {
		log.Panic(err)
	}
}

func userIDs(total int) []string {
	ids := make([]string, 0, total)
	for i := 0; i < total; i++ {
		ids = append(ids, fmt.Sprintf("user%d", i))
	}
	return ids
}

func insertUsers(ctx context.Context, ds storage.DocumentStore, users []string) error {
	defer timeTrack(time.Now(), "insertUsers")

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range users {
		g.Go(func() error {
			return ds.Set(ctx, social.UserPath(id), storage.Fields{
				social.FieldName:     "User " + id,
				social.FieldUsername: id,
			})
		})
	}

	return g.Wait()
}

func publish(ctx context.Context, ds storage.DocumentStore, users []string) ([]string, error) {
	defer timeTrack(time.Now(), "publish")

	actions := commands.NewActions(ds)
	recs := make([]string, len(users)*recommendationsPerUser)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range users {
		g.Go(func() error {
			for j := 0; j < recommendationsPerUser; j++ {
				rec, err := actions.Publish(ctx, id, social.Recommendation{
					Title:    fmt.Sprintf("Recommendation %d of %s", j, id),
					Category: categories[rand.IntN(len(categories))],
					Text:     "Generated by loaddata",
				})
				if err != nil {
					return err
				}
				recs[i*recommendationsPerUser+j] = rec.ID
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Printf("published %d recommendations", len(recs))
	return recs, nil
}

func engage(ctx context.Context, ds storage.DocumentStore, users, recs []string) error {
	defer timeTrack(time.Now(), "engage")

	actions := commands.NewActions(ds)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range users {
		g.Go(func() error {
			for i := 0; i < followsPerUser && len(users) > 1; i++ {
				followee := users[rand.IntN(len(users))]
				if followee == id {
					continue
				}
				if err := actions.Follow(ctx, id, followee); err != nil {
					return err
				}
			}

			for i := 0; i < likesPerUser && len(recs) > 0; i++ {
				if err := actions.Like(ctx, id, recs[rand.IntN(len(recs))]); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	log.Printf("%s took %s", name, elapsed)
}
