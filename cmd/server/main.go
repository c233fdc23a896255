package main

import (
	"context"
	"net/http"
	"os"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	"github.com/plumeapp/plume/classify"
	"github.com/plumeapp/plume/content"
	"github.com/plumeapp/plume/feed"
	"github.com/plumeapp/plume/filestore"
	"github.com/plumeapp/plume/profile"
	"github.com/plumeapp/plume/server/handlers"
	"github.com/plumeapp/plume/server/middlewares"
	"github.com/plumeapp/plume/utils"
	"github.com/plumeapp/plume/utils/dotenv"
	"github.com/plumeapp/plume/utils/flag"
	Logger "github.com/plumeapp/plume/utils/log"
)

func cleanup() {
	utils.CloseProfiler()
	utils.CloseTracer()
	Logger.Log.Info("api server shutdown")
}

// firstPageCache picks the Redis backed cache when Redis is configured,
// falling back to the in-process memo for single replica deployments.
func firstPageCache() feed.FirstPageCache {
	if os.Getenv("REDIS_HOST") == "" {
		return feed.NewMemoryFirstPageCache()
	}
	client := utils.GetRedisClient()
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		Logger.Log.Warn("redis unreachable, using in-process first page cache: ", err)
		return feed.NewMemoryFirstPageCache()
	}
	return feed.NewRedisFirstPageCache(client)
}

func main() {
	defer cleanup()

	flag.Parse()

	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	// Rebuild the logger now that flags and env are in their final state.
	Logger.InitLogger()

	utils.InitTracer()
	utils.InitProfiler()

	db, err := utils.GetDBConnection()
	if err != nil {
		Logger.Log.Fatal("fail to connect to database: ", err)
	}
	utils.DatabaseSetupAndMigration(db)

	statsdClient, err := statsd.New("127.0.0.1:8125")
	if err != nil {
		Logger.Log.Warn("statsd unavailable, metrics disabled: ", err)
		statsdClient = nil
	}

	imageStore, err := filestore.NewS3ImageStore(filestore.DefaultImageBucket)
	if err != nil {
		Logger.Log.Fatal("fail to setup image store: ", err)
	}

	cache := firstPageCache()
	profiles := profile.NewStore(db)
	composer := feed.NewComposer(feed.NewGormCandidateSource(db), profiles, statsdClient)
	contentService := content.NewService(db, classify.NewOpenAIClassifier(), imageStore, cache)

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	tracker := profile.NewTracker(profiles, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := tracker.Run(ctx); err != nil {
			Logger.Log.Error("behavior tracker stopped: ", err)
		}
	}()

	if !flag.ByPassAuth {
		middlewares.Setup()
	}

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(gintrace.Middleware(flag.ServiceName))
	if !flag.ByPassAuth {
		router.Use(middlewares.Identity())
	}

	handler := handlers.NewHandler(db, composer, cache, contentService, tracker, statsdClient)
	handler.RegisterRoutes(router)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	Logger.Log.Info("api server starts up")
	router.Run(":8080")
}
