package msg

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tkoeppen/taskwire/cmd/util"
	"github.com/tkoeppen/taskwire/rpc"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for taskwire servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. ping,echo-large)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How large the payload for the echo-large test should be (in KB)"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	defer rpcClient.Close()

	fmt.Println("Performance testing tool for taskwire servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Addr: %s\n", util.GetServerAddr())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	addr := util.GetServerAddr()
	ctx := context.Background()

	pingResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("ping") {
			return
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcClient.SendRecv(ctx, addr, rpc.Message{"op": "ping"}); err != nil {
					log.Printf("(ping) - error: %v\n", err)
				}
			}
		})
	})
	printResult("ping", pingResult)

	echoResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("echo") {
			return
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcClient.SendRecv(ctx, addr, rpc.Message{"op": "echo", "data": []byte("test")}); err != nil {
					log.Printf("(echo) - error: %v\n", err)
				}
			}
		})
	})
	printResult("echo", echoResult)

	echoLargeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("echo-large") {
			return
		}

		// prepare large payload, big enough to be extracted and compressed
		largeValue := make([]byte, perfLargeValueSizeKB*1024)

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcClient.SendRecv(ctx, addr, rpc.Message{"op": "echo", "data": largeValue}); err != nil {
					log.Printf("(echo-large) - error: %v\n", err)
				}
			}
		})
	})
	printResult("echo-large", echoLargeResult)

	sinkResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("sink") {
			return
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcClient.SendRecv(ctx, addr, rpc.Message{"op": "sink", "data": []byte("test")}); err != nil {
					log.Printf("(sink) - error: %v\n", err)
				}
			}
		})
	})
	printResult("sink", sinkResult)

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}
