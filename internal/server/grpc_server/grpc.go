package grpc_server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/okieraised/sensor-watchdog/internal/config"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

func getGRPCPort() int {
	port := viper.GetInt(config.AgentGRPCPort)
	if port <= 0 {
		return constants.AgentDefaultGRPCPort
	}
	return port
}

func recoveryHandler(p any) error {
	log.Default().Error(fmt.Sprintf("panic recovered: %v", p))
	return status.Errorf(codes.Internal, "internal server error")
}

func serverOptions() ([]grpc.ServerOption, error) {
	var serverOpts []grpc.ServerOption

	if viper.GetString(config.AgentTLSCertFile) != "" && viper.GetString(config.AgentTLSKeyFile) != "" {
		cert, err := tls.LoadX509KeyPair(viper.GetString(config.AgentTLSCertFile), viper.GetString(config.AgentTLSKeyFile))
		if err != nil {
			return nil, errors.Wrap(err, "failed to load server cert file")
		}
		tlsCfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		if viper.GetString(config.AgentTLSClientCAFile) != "" {
			caBytes, err := os.ReadFile(viper.GetString(config.AgentTLSClientCAFile))
			if err != nil {
				return nil, errors.Wrap(err, "failed to read client CA file")
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caBytes) {
				return nil, errors.New("failed to append client CA to pool")
			}
			tlsCfg.ClientCAs = pool
			tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(tlsCfg)))
	}

	serverOpts = append(serverOpts,
		grpc.MaxRecvMsgSize(1<<20),
		grpc.MaxSendMsgSize(1<<20),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      2 * time.Hour,
			MaxConnectionAgeGrace: 30 * time.Second,
			Time:                  2 * time.Minute,
			Timeout:               20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(
			keepalive.EnforcementPolicy{
				MinTime:             1 * time.Minute,
				PermitWithoutStream: true,
			}),
		grpc.ChainUnaryInterceptor(
			grpc_recovery.UnaryServerInterceptor(grpc_recovery.WithRecoveryHandler(recoveryHandler)),
		),
		grpc.ChainStreamInterceptor(
			grpc_recovery.StreamServerInterceptor(grpc_recovery.WithRecoveryHandler(recoveryHandler)),
		),
	)
	return serverOpts, nil
}

// NewGRPCServer listens on the configured port, blocks until ctx is done, then graceful-stops.
func NewGRPCServer(ctx context.Context, registerServices func(s *grpc.Server)) error {
	log.Default().Info("Initializing gRPC server")
	lis, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", getGRPCPort()))
	if err != nil {
		wErr := errors.Wrap(err, "failed to listen")
		log.Default().Error(wErr.Error())
		return wErr
	}
	return Serve(ctx, lis, registerServices)
}

// Serve runs a gRPC server on lis until ctx is done. lis is closed on return.
func Serve(ctx context.Context, lis net.Listener, registerServices func(s *grpc.Server)) error {
	serverOpts, err := serverOptions()
	if err != nil {
		_ = lis.Close()
		return err
	}

	grpcServer := grpc.NewServer(serverOpts...)
	if registerServices != nil {
		registerServices(grpcServer)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Default().Info(fmt.Sprintf("Starting gRPC server on %s", lis.Addr()))
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		log.Default().Info("Shutting down gRPC server")
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		// hard stop if graceful takes too long
		t := time.NewTimer(3 * time.Second)
		defer t.Stop()
		select {
		case <-stopped:
			return nil
		case <-t.C:
			log.Default().Info("Graceful stop timed out, forcing shutdown")
			grpcServer.Stop()
			return nil
		}
	case err = <-errCh:
		return errors.Wrap(err, "failed to start gRPC server")
	}
}
