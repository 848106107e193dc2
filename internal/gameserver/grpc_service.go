package gameserver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combatant"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

// BattleServiceName is the fully qualified gRPC service name.
const BattleServiceName = "skirmish.v1.BattleService"

// Message field names shared by server and client.
const (
	fieldName     = "name"
	fieldPassword = "password"
	fieldToken    = "token"
	fieldLine     = "line"
	fieldLines    = "lines"
	fieldImages   = "images"
	fieldQuit     = "quit"
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{1,23}$`)

// PlayerStore persists players between connections.
//
// Authenticate returns postgres.ErrPlayerNotFound for unknown names and
// postgres.ErrInvalidCredentials for a wrong password.
type PlayerStore interface {
	Create(ctx context.Context, name, password string, state combatant.PlayerState) error
	Authenticate(ctx context.Context, name, password string) error
	Load(ctx context.Context, name string) (combatant.PlayerState, error)
	Save(ctx context.Context, state combatant.PlayerState) error
}

// BattleServiceServer is the server API of the battle service.
type BattleServiceServer interface {
	// Join authenticates {name, password} and returns {token}.
	Join(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	// Execute runs {token, line} and returns {lines, images, quit}.
	Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	// Leave disconnects {token}.
	Leave(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// BattleServiceDesc describes the battle service for grpc.Server.RegisterService.
var BattleServiceDesc = grpc.ServiceDesc{
	ServiceName: BattleServiceName,
	HandlerType: (*BattleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Join", Handler: unaryHandler("Join", BattleServiceServer.Join)},
		{MethodName: "Execute", Handler: unaryHandler("Execute", BattleServiceServer.Execute)},
		{MethodName: "Leave", Handler: unaryHandler("Leave", BattleServiceServer.Leave)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skirmish/v1/battle.proto",
}

type unaryMethod func(BattleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + BattleServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BattleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BattleServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BattleService implements BattleServiceServer over a BattleHandler.
type BattleService struct {
	handler  *BattleHandler
	store    PlayerStore
	starting *combatant.Template
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]battle.Identity
}

// NewBattleService creates a BattleService.
//
// Precondition: handler, starting and logger must be non-nil. store may be
// nil, in which case players are not persisted and passwords are ignored.
// Postcondition: Returns a BattleService with no sessions.
func NewBattleService(handler *BattleHandler, store PlayerStore, starting *combatant.Template, logger *zap.Logger) *BattleService {
	return &BattleService{
		handler:  handler,
		store:    store,
		starting: starting,
		logger:   logger,
		sessions: make(map[string]battle.Identity),
	}
}

// Register adds the service to gs.
func (s *BattleService) Register(gs *grpc.Server) {
	gs.RegisterService(&BattleServiceDesc, s)
}

// Join implements BattleServiceServer.
func (s *BattleService) Join(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	name := stringField(in, fieldName)
	password := stringField(in, fieldPassword)
	if !namePattern.MatchString(name) {
		return nil, status.Errorf(codes.InvalidArgument, "name must be 2-24 letters, digits or underscores, starting with a letter")
	}

	state, err := s.loadOrCreate(ctx, name, password)
	if err != nil {
		return nil, err
	}
	id, err := s.handler.Join(state)
	if errors.Is(err, ErrNameTaken) {
		return nil, status.Errorf(codes.AlreadyExists, "%s is already playing", name)
	}
	if err != nil {
		s.logger.Error("joining player", zap.String("name", name), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "joining: %v", err)
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = id
	s.mu.Unlock()
	return structpb.NewStruct(map[string]any{fieldToken: token})
}

func (s *BattleService) loadOrCreate(ctx context.Context, name, password string) (combatant.PlayerState, error) {
	if s.store == nil {
		return s.starting.PlayerState(name), nil
	}
	if password == "" {
		return combatant.PlayerState{}, status.Error(codes.InvalidArgument, "password must not be empty")
	}
	err := s.store.Authenticate(ctx, name, password)
	switch {
	case errors.Is(err, postgres.ErrPlayerNotFound):
		state := s.starting.PlayerState(name)
		if err := s.store.Create(ctx, name, password, state); err != nil {
			return combatant.PlayerState{}, status.Errorf(codes.Internal, "creating player: %v", err)
		}
		s.logger.Info("player created", zap.String("name", name))
		return state, nil
	case errors.Is(err, postgres.ErrInvalidCredentials):
		return combatant.PlayerState{}, status.Error(codes.Unauthenticated, "invalid credentials")
	case err != nil:
		return combatant.PlayerState{}, status.Errorf(codes.Internal, "authenticating: %v", err)
	}
	state, err := s.store.Load(ctx, name)
	if err != nil {
		return combatant.PlayerState{}, status.Errorf(codes.Internal, "loading player: %v", err)
	}
	return state, nil
}

// Execute implements BattleServiceServer.
func (s *BattleService) Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	token := stringField(in, fieldToken)
	id, err := s.session(token)
	if err != nil {
		return nil, err
	}
	resp, err := s.handler.Execute(id, stringField(in, fieldLine))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "executing: %v", err)
	}
	if resp.Quit {
		if err := s.leave(ctx, token, id); err != nil {
			return nil, err
		}
	}
	return structpb.NewStruct(map[string]any{
		fieldLines:  stringList(resp.Lines),
		fieldImages: stringList(resp.Images),
		fieldQuit:   resp.Quit,
	})
}

// Leave implements BattleServiceServer.
func (s *BattleService) Leave(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	token := stringField(in, fieldToken)
	id, err := s.session(token)
	if err != nil {
		return nil, err
	}
	if err := s.leave(ctx, token, id); err != nil {
		return nil, err
	}
	return &structpb.Struct{}, nil
}

func (s *BattleService) leave(ctx context.Context, token string, id battle.Identity) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	state, err := s.handler.Leave(id)
	if err != nil {
		return status.Errorf(codes.Internal, "leaving: %v", err)
	}
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, state); err != nil {
		s.logger.Error("saving player", zap.String("name", state.Name), zap.Error(err))
		return status.Errorf(codes.Internal, "saving: %v", err)
	}
	return nil
}

func (s *BattleService) session(token string) (battle.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[token]
	if !ok {
		return battle.Identity{}, status.Error(codes.Unauthenticated, "unknown session token")
	}
	return id, nil
}

// Autosave persists every connected player. Failures are logged and do not
// stop the remaining saves.
//
// Postcondition: Returns the number of players saved.
func (s *BattleService) Autosave(ctx context.Context) int {
	if s.store == nil {
		return 0
	}
	saved := 0
	for _, state := range s.handler.PlayerStates() {
		if err := s.store.Save(ctx, state); err != nil {
			s.logger.Warn("autosave failed", zap.String("name", state.Name), zap.Error(err))
			continue
		}
		saved++
	}
	s.logger.Debug("autosave complete", zap.Int("saved", saved))
	return saved
}

// LeaveAll disconnects every session, saving each player.
func (s *BattleService) LeaveAll(ctx context.Context) {
	s.mu.RLock()
	tokens := make(map[string]battle.Identity, len(s.sessions))
	for t, id := range s.sessions {
		tokens[t] = id
	}
	s.mu.RUnlock()
	for token, id := range tokens {
		if err := s.leave(ctx, token, id); err != nil {
			s.logger.Warn("disconnecting player", zap.Stringer("player", id), zap.Error(err))
		}
	}
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func stringList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// BattleClient is a client for the battle service.
type BattleClient struct {
	cc grpc.ClientConnInterface
}

// NewBattleClient wraps cc.
func NewBattleClient(cc grpc.ClientConnInterface) *BattleClient {
	return &BattleClient{cc: cc}
}

func (c *BattleClient) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+BattleServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Join returns a session token for name.
func (c *BattleClient) Join(ctx context.Context, name, password string) (string, error) {
	out, err := c.invoke(ctx, "Join", map[string]any{fieldName: name, fieldPassword: password})
	if err != nil {
		return "", err
	}
	return stringField(out, fieldToken), nil
}

// Execute runs line for the session and returns the player's output.
func (c *BattleClient) Execute(ctx context.Context, token, line string) (Response, error) {
	out, err := c.invoke(ctx, "Execute", map[string]any{fieldToken: token, fieldLine: line})
	if err != nil {
		return Response{}, err
	}
	return Response{
		Lines:  listField(out, fieldLines),
		Images: listField(out, fieldImages),
		Quit:   out.GetFields()[fieldQuit].GetBoolValue(),
	}, nil
}

// Leave ends the session.
func (c *BattleClient) Leave(ctx context.Context, token string) error {
	_, err := c.invoke(ctx, "Leave", map[string]any{fieldToken: token})
	return err
}

func listField(in *structpb.Struct, key string) []string {
	values := in.GetFields()[key].GetListValue().GetValues()
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.GetStringValue()
	}
	return out
}
